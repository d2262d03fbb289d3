// Package docs registers the pongarena API document with swag.
package docs

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/auth/token": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue a player token",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/TokenRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/TokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/matches": {
            "post": {
                "tags": ["matches"],
                "summary": "Find or open a match",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionRef"}}
                }
            }
        },
        "/matches/current": {
            "get": {
                "tags": ["matches"],
                "summary": "Session the caller last joined",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionMeta"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/matches/{id}": {
            "get": {
                "tags": ["matches"],
                "summary": "Session info",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionMeta"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/matches/{id}/join": {
            "post": {
                "tags": ["matches"],
                "summary": "Join a match by id",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SessionRef"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Error"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/matches/{id}/cancel": {
            "post": {
                "tags": ["matches"],
                "summary": "Leave matchmaking",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/tournaments/matches/{matchId}/session": {
            "post": {
                "tags": ["tournaments"],
                "summary": "Open the remote session for a bracket match",
                "parameters": [
                    {"in": "path", "name": "matchId", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/BracketSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/SessionRef"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/tournaments/matches/{matchId}/result": {
            "get": {
                "tags": ["tournaments"],
                "summary": "Result reported for a bracket match",
                "parameters": [{"in": "path", "name": "matchId", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/players/{id}/rank": {
            "get": {
                "tags": ["history"],
                "summary": "Leaderboard position of a player, 0 when unranked",
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/players/{id}/matches": {
            "get": {
                "tags": ["history"],
                "summary": "Finished matches of a player, newest first",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/leaderboard": {
            "get": {
                "tags": ["history"],
                "summary": "Top players by wins",
                "parameters": [{"in": "query", "name": "limit", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "Error": {"type": "object", "properties": {"error": {"type": "string"}}},
        "TokenRequest": {"type": "object", "properties": {"name": {"type": "string"}}},
        "TokenResponse": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "player_id": {"type": "string"}, "name": {"type": "string"}}
        },
        "SessionRef": {
            "type": "object",
            "properties": {"session_id": {"type": "string"}, "role": {"type": "string"}, "status": {"type": "string"}}
        },
        "BracketSessionRequest": {
            "type": "object",
            "properties": {"player1_id": {"type": "string"}, "player2_id": {"type": "string"}}
        },
        "SlotInfo": {
            "type": "object",
            "properties": {
                "playerId": {"type": "string"},
                "name": {"type": "string"},
                "connected": {"type": "boolean"},
                "ready": {"type": "boolean"}
            }
        },
        "SessionMeta": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "kind": {"type": "string"},
                "status": {"type": "string"},
                "originMatchId": {"type": "string"},
                "player1": {"$ref": "#/definitions/SlotInfo"},
                "player2": {"$ref": "#/definitions/SlotInfo"},
                "player1Score": {"type": "integer"},
                "player2Score": {"type": "integer"},
                "winner": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "pongarena API",
	Description:      "Remote Pong matchmaking, sessions and match history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
