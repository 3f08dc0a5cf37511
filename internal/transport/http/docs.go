// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"net/http"

	"github.com/swaggo/swag"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "System"
                ],
                "summary": "Health check"
            }
        },
        "/webhooks/chat": {
            "get": {
                "tags": [
                    "Webhooks"
                ],
                "summary": "Verify chat webhook"
            },
            "post": {
                "tags": [
                    "Webhooks"
                ],
                "summary": "Chat webhook"
            }
        },
        "/api/external/warranties": {
            "post": {
                "tags": [
                    "External"
                ],
                "summary": "Register warranty (external)"
            }
        },
        "/api/external/warranties/{serial}": {
            "get": {
                "tags": [
                    "External"
                ],
                "summary": "Get warranty by serial (external)"
            }
        },
        "/api/external/claims": {
            "post": {
                "tags": [
                    "External"
                ],
                "summary": "Create claim (external)"
            }
        },
        "/api/external/claims/{serial}": {
            "get": {
                "tags": [
                    "External"
                ],
                "summary": "List claims by serial (external)"
            }
        },
        "/api/external/products/{serial}": {
            "get": {
                "tags": [
                    "External"
                ],
                "summary": "Get product by serial (external)"
            }
        },
        "/api/v1/auth/signup": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Sign up"
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": [
                    "Auth"
                ],
                "summary": "Login"
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": [
                    "Auth"
                ],
                "summary": "Current account"
            }
        },
        "/api/v1/stores": {
            "post": {
                "tags": [
                    "Stores"
                ],
                "summary": "Set up store"
            }
        },
        "/api/v1/stores/current": {
            "get": {
                "tags": [
                    "Stores"
                ],
                "summary": "Current store"
            },
            "put": {
                "tags": [
                    "Stores"
                ],
                "summary": "Update store settings"
            }
        },
        "/api/v1/store-users": {
            "get": {
                "tags": [
                    "Store Users"
                ],
                "summary": "List store users"
            },
            "post": {
                "tags": [
                    "Store Users"
                ],
                "summary": "Grant store access"
            }
        },
        "/api/v1/store-users/{accountID}": {
            "delete": {
                "tags": [
                    "Store Users"
                ],
                "summary": "Revoke store access"
            }
        },
        "/api/v1/api-keys": {
            "get": {
                "tags": [
                    "API Keys"
                ],
                "summary": "List API keys"
            },
            "post": {
                "tags": [
                    "API Keys"
                ],
                "summary": "Create API key"
            }
        },
        "/api/v1/api-keys/{keyID}/status": {
            "put": {
                "tags": [
                    "API Keys"
                ],
                "summary": "Set API key status"
            }
        },
        "/api/v1/products": {
            "post": {
                "tags": [
                    "Products"
                ],
                "summary": "Create product"
            }
        },
        "/api/v1/products/{productID}": {
            "get": {
                "tags": [
                    "Products"
                ],
                "summary": "Get product"
            }
        },
        "/api/v1/products/serial/{serial}": {
            "get": {
                "tags": [
                    "Products"
                ],
                "summary": "Get product by serial"
            }
        },
        "/api/v1/customers": {
            "post": {
                "tags": [
                    "Customers"
                ],
                "summary": "Find or create customer"
            }
        },
        "/api/v1/warranties": {
            "post": {
                "tags": [
                    "Warranties"
                ],
                "summary": "Register warranty"
            }
        },
        "/api/v1/warranties/{warrantyID}": {
            "get": {
                "tags": [
                    "Warranties"
                ],
                "summary": "Get warranty"
            }
        },
        "/api/v1/claims": {
            "post": {
                "tags": [
                    "Claims"
                ],
                "summary": "Create claim"
            }
        },
        "/api/v1/claims/{claimID}": {
            "get": {
                "tags": [
                    "Claims"
                ],
                "summary": "Get claim"
            }
        },
        "/api/v1/claims/{claimID}/status": {
            "put": {
                "tags": [
                    "Claims"
                ],
                "summary": "Update claim status"
            }
        },
        "/api/v1/claims/{claimID}/timeline": {
            "post": {
                "tags": [
                    "Claims"
                ],
                "summary": "Add timeline event"
            }
        },
        "/api/v1/audit-logs": {
            "get": {
                "tags": [
                    "Audit"
                ],
                "summary": "List audit logs"
            }
        },
        "/api/v1/chat-events": {
            "get": {
                "tags": [
                    "Chat"
                ],
                "summary": "List chat history"
            }
        }
    },
    "securityDefinitions": {
        "APIKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        },
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "WarrantyHub API",
	Description:      "Multi-tenant warranty registration and claims platform",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// SwaggerDoc serves the OpenAPI document
// @Summary OpenAPI document
// @Tags System
// @Produce json
// @Success 200 {object} map[string]any
// @Router /swagger/doc.json [get]
func (h *Handler) SwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
