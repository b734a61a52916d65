// Package docs holds the Swagger 2.0 document served at /swagger. It is
// maintained by hand alongside the handler annotations.
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
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Ops"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Pings the transport and the blob store",
                "produces": ["application/json"],
                "tags": ["Ops"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/publish": {
            "post": {
                "description": "Decodes the message as the registered className and publishes the normalized JSON to the topic",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Publish"],
                "summary": "Publish a message",
                "parameters": [
                    {"description": "Publish request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.PublishRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Unknown message type or deserialization error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "500": {"description": "Failed to publish", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/types": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Publish"],
                "summary": "List registered message types",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/api.TypeInfo"}}}
                }
            }
        },
        "/users": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Scenarios"],
                "summary": "List users that own scenarios",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/users/{userId}/scenarios": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Scenarios"],
                "summary": "List a user's scenarios",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Scenario"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Scenarios"],
                "summary": "Create or replace a scenario",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "userId", "in": "path", "required": true},
                    {"description": "Scenario", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.Scenario"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Scenario"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/users/{userId}/scenarios/{scenarioId}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["Scenarios"],
                "summary": "Get a scenario",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "userId", "in": "path", "required": true},
                    {"type": "string", "description": "Scenario id", "name": "scenarioId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Scenario"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["Scenarios"],
                "summary": "Delete a scenario",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "userId", "in": "path", "required": true},
                    {"type": "string", "description": "Scenario id", "name": "scenarioId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/users/{userId}/scenarios/{scenarioId}/play": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Publishes the scenario's messages column by column and stops at the first failing column",
                "produces": ["application/json"],
                "tags": ["Scenarios"],
                "summary": "Play a scenario",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "userId", "in": "path", "required": true},
                    {"type": "string", "description": "Scenario id", "name": "scenarioId", "in": "path", "required": true},
                    {"type": "integer", "description": "First column to play (resume)", "name": "from", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/playback.Report"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/message-samples": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Message samples"],
                "summary": "List message samples",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.MessageSample"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Message samples"],
                "summary": "Create or replace a message sample",
                "parameters": [
                    {"description": "Message sample", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.MessageSample"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.MessageSample"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/message-samples/{messageId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Message samples"],
                "summary": "Get a message sample",
                "parameters": [
                    {"type": "string", "description": "Message sample id", "name": "messageId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.MessageSample"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Message samples"],
                "summary": "Delete a message sample",
                "parameters": [
                    {"type": "string", "description": "Message sample id", "name": "messageId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "unknown message type: Foo"}
            }
        },
        "api.TypeInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "OrderCreated"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "model.PublishRequest": {
            "type": "object",
            "properties": {
                "className": {"type": "string"},
                "topic": {"type": "string"},
                "attributes": {"type": "object", "additionalProperties": {"type": "string"}},
                "message": {"type": "object"}
            }
        },
        "model.MessageSample": {
            "type": "object",
            "properties": {
                "messageId": {"type": "string"},
                "className": {"type": "string"},
                "topic": {"type": "string"},
                "attributes": {"type": "object", "additionalProperties": {"type": "string"}},
                "message": {"type": "object"}
            }
        },
        "model.Scenario": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/model.ScenarioMessage"}}
            }
        },
        "model.ScenarioMessage": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "column": {"type": "integer"},
                "payload": {"$ref": "#/definitions/model.PublishRequest"}
            }
        },
        "playback.Report": {
            "type": "object",
            "properties": {
                "scenarioId": {"type": "string"},
                "status": {"type": "string", "enum": ["completed", "failed", "cancelled"]},
                "completedColumn": {"type": "integer"},
                "columns": {"type": "array", "items": {"$ref": "#/definitions/playback.ColumnResult"}},
                "errors": {"type": "array", "items": {"type": "string"}},
                "startedAt": {"type": "string"},
                "finishedAt": {"type": "string"}
            }
        },
        "playback.ColumnResult": {
            "type": "object",
            "properties": {
                "column": {"type": "integer"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/playback.MessageResult"}}
            }
        },
        "playback.MessageResult": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "className": {"type": "string"},
                "topic": {"type": "string"},
                "result": {"type": "object"},
                "error": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "Reggie API",
	Description:      "Publishes registered message types to pub/sub topics and stores scenarios and message samples",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
