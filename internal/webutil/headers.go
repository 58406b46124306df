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

// Package webutil holds request and response helpers shared by the HTTP
// handlers: alert headers, pagination, JSON responses and locale cookies.
package webutil

import (
	"log/slog"
	"net/http"
	"net/url"
)

// CreateAlert returns the X-{app}-alert and X-{app}-params headers. param
// is query escaped.
func CreateAlert(applicationName, message, param string) http.Header {
	h := http.Header{}
	h.Add("X-"+applicationName+"-alert", message)
	h.Add("X-"+applicationName+"-params", url.QueryEscape(param))
	return h
}

func CreateEntityCreationAlert(applicationName string, enableTranslation bool, entityName, param string) http.Header {
	message := "A new " + entityName + " is created with identifier " + param
	if enableTranslation {
		message = applicationName + "." + entityName + ".created"
	}
	return CreateAlert(applicationName, message, param)
}

func CreateEntityUpdateAlert(applicationName string, enableTranslation bool, entityName, param string) http.Header {
	message := "A " + entityName + " is updated with identifier " + param
	if enableTranslation {
		message = applicationName + "." + entityName + ".updated"
	}
	return CreateAlert(applicationName, message, param)
}

func CreateEntityDeletionAlert(applicationName string, enableTranslation bool, entityName, param string) http.Header {
	message := "A " + entityName + " is deleted with identifier " + param
	if enableTranslation {
		message = applicationName + "." + entityName + ".deleted"
	}
	return CreateAlert(applicationName, message, param)
}

// CreateFailureAlert returns the X-{app}-error header. With translation
// enabled the message is the key "error.{errorKey}".
func CreateFailureAlert(applicationName string, enableTranslation bool, entityName, errorKey, defaultMessage string) http.Header {
	slog.Error("Entity processing failed", slog.String("message", defaultMessage))

	message := defaultMessage
	if enableTranslation {
		message = "error." + errorKey
	}
	h := http.Header{}
	h.Add("X-"+applicationName+"-error", message)
	h.Add("X-"+applicationName+"-params", entityName)
	return h
}

// CopyHeaders adds every value of src to w's headers.
func CopyHeaders(w http.ResponseWriter, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
}
