// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"net/url"
)

const redactedValue = "******"

// Redacted returns a copy of p with secrets masked. Passwords embedded in
// datasource URLs are masked too.
func (p *Properties) Redacted() *Properties {
	cp := *p

	cp.Datasource.URL = redactURL(p.Datasource.URL)
	cp.Datasource.Password = mask(p.Datasource.Password)
	cp.Migration.URL = redactURL(p.Migration.URL)
	cp.Migration.Password = mask(p.Migration.Password)

	cp.Security.ClientAuthorization.ClientSecret = mask(p.Security.ClientAuthorization.ClientSecret)
	cp.Security.Authentication.JWT.Secret = mask(p.Security.Authentication.JWT.Secret)
	cp.Security.Authentication.JWT.Base64Secret = mask(p.Security.Authentication.JWT.Base64Secret)
	cp.Security.RememberMe.Key = mask(p.Security.RememberMe.Key)
	cp.Registry.Password = mask(p.Registry.Password)
	return &cp
}

func mask(s *string) *string {
	if s == nil || *s == "" {
		return s
	}
	v := redactedValue
	return &v
}

func redactURL(s *string) *string {
	if s == nil || *s == "" {
		return s
	}
	u, err := url.Parse(*s)
	if err != nil || u.User == nil {
		return s
	}
	if _, ok := u.User.Password(); !ok {
		return s
	}
	v := u.Redacted()
	return &v
}
