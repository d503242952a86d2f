// Package swagger holds the generated OpenAPI definition served at /swagger.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check endpoint",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/contracts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["contracts"],
                "summary": "List registered contracts for an app",
                "parameters": [
                    {"type": "string", "name": "appId", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["contracts"],
                "summary": "Register a deployed contract",
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/contracts/{contractId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["contracts"],
                "summary": "Get a registered contract",
                "parameters": [
                    {"type": "string", "name": "contractId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["contracts"],
                "summary": "Soft-delete a registered contract",
                "parameters": [
                    {"type": "string", "name": "contractId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/contracts/{contractId}/verification": {
            "post": {
                "produces": ["application/json"],
                "tags": ["verification"],
                "summary": "Start ownership verification for a contract",
                "parameters": [
                    {"type": "string", "name": "contractId", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/contracts/verification/{challengeId}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["verification"],
                "summary": "Complete ownership verification with a signed challenge",
                "parameters": [
                    {"type": "string", "name": "challengeId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Contract Verification Service API",
	Description:      "Registers on-chain contract deployments and verifies deployer ownership via signed challenges",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
