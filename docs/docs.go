// Package docs registers the OpenAPI description of the posd facade with
// swag so gin-swagger can serve it under /swagger.
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
        "/dashboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Dashboard"],
                "summary": "Dashboard for a period",
                "operationId": "getDashboard",
                "parameters": [
                    {"type": "string", "default": "7days", "description": "Reporting period", "name": "period", "in": "query"},
                    {"type": "boolean", "description": "Skip the cache", "name": "refresh", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "503": {"description": "Unreachable and nothing cached", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/menu": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Menu"],
                "summary": "Menu items and categories",
                "operationId": "getMenu",
                "parameters": [
                    {"type": "string", "description": "Category id", "name": "category", "in": "query"},
                    {"type": "boolean", "description": "Skip the cache", "name": "refresh", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StateResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/sales": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sales"],
                "summary": "Sales list with payment totals",
                "operationId": "getSales",
                "parameters": [
                    {"type": "string", "description": "Start date (YYYY-MM-DD)", "name": "from", "in": "query"},
                    {"type": "string", "description": "End date (YYYY-MM-DD)", "name": "to", "in": "query"},
                    {"type": "string", "description": "cash, card, upi", "name": "payment_method", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "name": "limit", "in": "query"},
                    {"type": "boolean", "description": "Skip the cache", "name": "refresh", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StateResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/checkout": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Checkout"],
                "summary": "Ring up a sale",
                "description": "201 when recorded by the server, 202 when queued offline.",
                "operationId": "checkout",
                "parameters": [
                    {"type": "string", "description": "Client key, one per cart", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Sale", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.SaleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Recorded by the server", "schema": {"$ref": "#/definitions/services.CheckoutResult"}},
                    "202": {"description": "Queued offline", "schema": {"$ref": "#/definitions/services.CheckoutResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Rejected by the server", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/queue": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Pending offline sales",
                "operationId": "getQueue",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.QueueResponse"}}}
            }
        },
        "/sync": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Replay the offline queue now",
                "operationId": "syncQueue",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SyncResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/connectivity": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Current connectivity",
                "operationId": "getConnectivity",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ConnectivityResponse"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Sync"],
                "summary": "Push a connectivity change",
                "operationId": "setConnectivity",
                "parameters": [
                    {"description": "New state", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ConnectivityResponse"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ConnectivityResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/mutations/{kind}": {
            "post": {
                "tags": ["Cache"],
                "summary": "Report a data change made elsewhere",
                "operationId": "applyMutation",
                "parameters": [
                    {"enum": ["sale", "stock", "product", "expense", "category", "organization"], "type": "string", "name": "kind", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/cache": {
            "delete": {
                "tags": ["Cache"],
                "summary": "Drop every cached read model",
                "operationId": "clearCache",
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "invalid_sale"},
                "message": {"type": "string", "example": "cart is empty"}
            }
        },
        "handlers.StateResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "loading": {"type": "boolean"},
                "refreshing": {"type": "boolean"},
                "fromCache": {"type": "boolean"},
                "stale": {"type": "boolean"},
                "error": {"type": "string", "example": "network error"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "handlers.QueueResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer", "example": 2},
                "draining": {"type": "boolean"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.QueuedTransaction"}}
            }
        },
        "handlers.SyncResponse": {
            "type": "object",
            "properties": {
                "synced": {"type": "integer"},
                "failed": {"type": "integer"},
                "pending": {"type": "integer"}
            }
        },
        "handlers.ConnectivityResponse": {
            "type": "object",
            "properties": {"online": {"type": "boolean", "example": true}}
        },
        "domain.SaleItem": {
            "type": "object",
            "properties": {
                "productId": {"type": "string"},
                "name": {"type": "string"},
                "quantity": {"type": "integer", "example": 2},
                "unitPrice": {"type": "string", "example": "150.00"}
            }
        },
        "domain.SaleRequest": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.SaleItem"}},
                "paymentMethod": {"type": "string", "example": "cash"},
                "customerName": {"type": "string"},
                "discount": {"type": "string", "example": "0"},
                "notes": {"type": "string"}
            }
        },
        "domain.Sale": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.SaleItem"}},
                "total": {"type": "string", "example": "300.00"},
                "paymentMethod": {"type": "string"},
                "customerName": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.QueuedTransaction": {
            "type": "object",
            "properties": {
                "localId": {"type": "string", "example": "offline_1760518800000_3f2a9c1e"},
                "payload": {"$ref": "#/definitions/domain.SaleRequest"},
                "enqueuedAt": {"type": "string", "format": "date-time"},
                "retryCount": {"type": "integer"}
            }
        },
        "services.CheckoutResult": {
            "type": "object",
            "properties": {
                "sale": {"$ref": "#/definitions/domain.Sale"},
                "queued": {"type": "boolean"},
                "localId": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "posd local API",
	Description:      "Loopback facade of the point-of-sale client core: cached read models, checkout with offline queueing, sync control.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
