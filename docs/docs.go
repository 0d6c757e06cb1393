// Package docs registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/main.go
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
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/ports": {
            "get": {"tags": ["bridge"], "summary": "List serial ports", "produces": ["application/json"], "responses": {"200": {"description": "ports"}}}
        },
        "/api/v1/connect": {
            "post": {
                "tags": ["bridge"],
                "summary": "Connect to a serial port",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ConnectRequest"}}],
                "responses": {"200": {"description": "connecting"}, "400": {"description": "Bad Request"}, "503": {"description": "Service Unavailable"}}
            }
        },
        "/api/v1/disconnect": {
            "post": {"tags": ["bridge"], "summary": "Disconnect the serial port", "produces": ["application/json"], "responses": {"200": {"description": "disconnected"}}}
        },
        "/api/v1/status": {
            "get": {"tags": ["bridge"], "summary": "Link status", "produces": ["application/json"], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.LinkStatus"}}}}
        },
        "/api/v1/calls": {
            "get": {
                "tags": ["calls"],
                "summary": "Call history",
                "produces": ["application/json"],
                "parameters": [{"in": "query", "name": "status", "type": "string", "enum": ["active", "completed"]}],
                "responses": {"200": {"description": "count, calls"}, "400": {"description": "Bad Request"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/api/v1/calls/export": {
            "get": {
                "tags": ["calls"],
                "summary": "Export call history as xlsx",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"in": "query", "name": "status", "type": "string", "enum": ["active", "completed"]}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/api/v1/calls/enclose-latest": {
            "post": {"tags": ["calls"], "summary": "Complete the most recent pending call", "produces": ["application/json"], "responses": {"200": {"description": "completed"}, "404": {"description": "no pending calls"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/v1/calls/enclose-all": {
            "post": {"tags": ["calls"], "summary": "Complete every pending call", "produces": ["application/json"], "responses": {"200": {"description": "updated"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/v1/master": {
            "get": {"tags": ["master"], "summary": "Master directory", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/v1/config": {
            "put": {"tags": ["master"], "summary": "Replace the application document", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "413": {"description": "Request Entity Too Large"}, "500": {"description": "Internal Server Error"}}}
        },
        "/api/v1/logs": {
            "get": {
                "tags": ["logs"],
                "summary": "List bridge events",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "from", "type": "string"},
                    {"in": "query", "name": "to", "type": "string"},
                    {"in": "query", "name": "type", "type": "string", "enum": ["device-connected", "device-disconnected", "device-error", "call-triggered", "call-resolved"]}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}, "500": {"description": "Internal Server Error"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["bridge"],
                "summary": "Bridge event stream",
                "parameters": [
                    {"in": "query", "name": "interval", "type": "string"},
                    {"in": "query", "name": "interval_ms", "type": "integer"}
                ],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "handlers.ConnectRequest": {
            "type": "object",
            "required": ["port"],
            "properties": {"port": {"type": "string", "example": "COM3"}}
        },
        "models.LinkStatus": {
            "type": "object",
            "properties": {"state": {"type": "string"}, "port": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Nurse Call Bridge API",
	Description:      "Serial bridge between a nurse-call panel and the ward UI.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
