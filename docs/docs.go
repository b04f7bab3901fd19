// Package docs holds the OpenAPI description of the portal shell served at
// /swagger/. Regenerate with `swag init -g internal/api/router.go` after
// changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/login": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login page",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.loginPageView"}},
                    "302": {"description": "Found"}
                }
            },
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {"type": "string", "description": "Username", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "202": {"description": "second factor required", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.loginResponse"}}
                }
            }
        },
        "/login/2fa": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Complete two-factor login",
                "parameters": [
                    {"type": "string", "description": "Six digit code", "name": "code", "in": "formData", "required": true},
                    {"type": "string", "description": "Temporary ticket, defaults to the pending one", "name": "token_2fa", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.loginResponse"}}
                }
            }
        },
        "/logout": {
            "post": {
                "tags": ["auth"],
                "summary": "Log out",
                "responses": {"303": {"description": "See Other"}}
            }
        },
        "/api/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.UserRecord"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/home": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Home page",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageView"}},
                    "302": {"description": "Found"}
                }
            }
        },
        "/api-data": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Backend data page",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageView"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/patient/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Role dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageView"}},
                    "302": {"description": "Found"}
                }
            }
        },
        "/mantelzorger/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Role dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageView"}},
                    "302": {"description": "Found"}
                }
            }
        },
        "/zorgverlener/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pages"],
                "summary": "Role dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageView"}},
                    "302": {"description": "Found"}
                }
            }
        },
        "/capacitor": {
            "get": {
                "produces": ["application/json"],
                "tags": ["device"],
                "summary": "Device page",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.pageView"}}
                }
            }
        },
        "/capacitor/wake": {
            "post": {
                "produces": ["application/json"],
                "tags": ["device"],
                "summary": "Trigger a background wake",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handler.acceptedResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/health/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.readinessResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.readinessResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.UserRecord": {
            "type": "object",
            "properties": {
                "role": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "handler.acceptedResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "handler.loginPageView": {
            "type": "object",
            "properties": {
                "page": {"type": "string"},
                "two_factor_pending": {"type": "boolean"},
                "username": {"type": "string"}
            }
        },
        "handler.loginResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "redirect": {"type": "string"},
                "requires_2fa": {"type": "boolean"},
                "success": {"type": "boolean"},
                "username": {"type": "string"}
            }
        },
        "handler.pageView": {
            "type": "object",
            "properties": {
                "data": {},
                "page": {"type": "string"},
                "title": {"type": "string"},
                "user": {"$ref": "#/definitions/domain.UserRecord"}
            }
        },
        "handler.readinessResponse": {
            "type": "object",
            "properties": {
                "dependencies": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "object",
                        "properties": {
                            "error": {"type": "string"},
                            "status": {"type": "string"}
                        }
                    }
                },
                "status": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Care portal shell",
	Description:      "Role-based dashboards and the client session of the medication-management product.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
