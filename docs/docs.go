// Package docs holds the OpenAPI document served under /swagger.
// Regenerate with `swag init -g cmd/server/main.go` after changing the
// handler annotations.
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
        "/auth/callback": {
            "get": {
                "tags": ["auth"],
                "summary": "Finish the OAuth login and start a session",
                "parameters": [
                    {"type": "string", "description": "authorization code", "name": "code", "in": "query"},
                    {"type": "string", "description": "state echoed by the provider", "name": "state", "in": "query", "required": true}
                ],
                "responses": {
                    "303": {"description": "See Other"},
                    "400": {"description": "state mismatch or provider error", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "get": {
                "tags": ["auth"],
                "summary": "Start the OAuth login",
                "responses": {
                    "307": {"description": "Temporary Redirect"},
                    "500": {"description": "OAuth client not configured", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "provider discovery failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/auth/logout": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "End the session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.DetailResponse"}}
                }
            }
        },
        "/auth/profile": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user's profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.User"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "session user no longer exists", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["ops"],
                "summary": "Liveness and database reachability",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tools": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tools"],
                "summary": "List tools in insertion order",
                "parameters": [
                    {"type": "integer", "default": 0, "description": "rows to skip", "name": "skip", "in": "query"},
                    {"type": "integer", "default": 10, "description": "page size", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Tool"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tools"],
                "summary": "Create a tool",
                "parameters": [
                    {"description": "new tool", "name": "tool", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ToolCreateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Tool"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "url already exists", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/tools/ai_search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tools"],
                "summary": "Rank tools by semantic similarity to a query",
                "parameters": [
                    {"type": "string", "description": "free-text query", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "default": 5, "description": "number of results", "name": "top_k", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Tool"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "empty catalog", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "embedding model failed", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/tools/search": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tools"],
                "summary": "Filter tools by name and/or category substring",
                "parameters": [
                    {"type": "string", "description": "case-insensitive name substring", "name": "name", "in": "query"},
                    {"type": "string", "description": "case-insensitive category substring", "name": "category", "in": "query"},
                    {"type": "integer", "default": 0, "description": "rows to skip", "name": "skip", "in": "query"},
                    {"type": "integer", "default": 10, "description": "page size", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Tool"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/tools/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tools"],
                "summary": "Get one tool",
                "parameters": [
                    {"type": "integer", "description": "tool id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Tool"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "put": {
                "description": "Absent or null fields are left unchanged. An empty description clears it.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tools"],
                "summary": "Partially update a tool",
                "parameters": [
                    {"type": "integer", "description": "tool id", "name": "id", "in": "path", "required": true},
                    {"description": "fields to change", "name": "tool", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.ToolUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Tool"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["tools"],
                "summary": "Delete a tool",
                "parameters": [
                    {"type": "integer", "description": "tool id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.DetailResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.DetailResponse": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "detail": {"type": "string"},
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handler.ToolCreateRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "description": {"type": "string"},
                "name": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "model.Tool": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "model.ToolUpdate": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "description": {"type": "string"},
                "name": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "model.User": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "picture": {"type": "string"}
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
	Title:            "Tool Hub API",
	Description:      "Catalog of third-party APIs with keyword and semantic search.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
