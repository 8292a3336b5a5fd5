package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EMR Lookup API",
        "description": "Officer lookup and complaint statistics over the SLMPD Employee Misconduct Report dataset",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Officers", "description": "Officer search and complaint drill-down"},
        {"name": "Aggregates", "description": "Complaint counts for the public charts"},
        {"name": "Snapshot", "description": "Dataset version and refresh"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check, 503 until the first snapshot is published",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Loading"}
                }
            }
        },
        "/api/v1/officers/names": {
            "get": {
                "tags": ["Officers"],
                "summary": "Officer name suggestions",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Collated display names", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Snapshot not ready", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/officers/search": {
            "get": {
                "tags": ["Officers"],
                "summary": "Search officer by \"Last, First\" name",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "name", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Search result, found=false on a miss", "schema": {"$ref": "#/definitions/OfficerSearchEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/officers/{id}/complaints": {
            "get": {
                "tags": ["Officers"],
                "summary": "Officer complaints ordered by incident date",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Officer DSN"}
                ],
                "responses": {
                    "200": {"description": "Complaint list", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/officers/{id}/complaints/{index}": {
            "get": {
                "tags": ["Officers"],
                "summary": "Complaint detail by position in the officer's list",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Complaint detail", "schema": {"$ref": "#/definitions/ComplaintDetailEnvelope"}},
                    "400": {"description": "INDEX_OUT_OF_RANGE or VALIDATION_ERROR", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/officers/{id}/complaints/export": {
            "get": {
                "tags": ["Officers"],
                "summary": "Download an officer's complaint list",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}},
                    "404": {"description": "Officer not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/aggregates/{dimension}": {
            "get": {
                "tags": ["Aggregates"],
                "summary": "Complaint counts by dimension",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "dimension", "in": "path", "required": true, "type": "string", "enum": ["race", "gender", "district", "nature"]},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["count", "label"]}
                ],
                "responses": {
                    "200": {"description": "Label counts", "schema": {"$ref": "#/definitions/AggregateEnvelope"}},
                    "400": {"description": "Unknown dimension", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/snapshot": {
            "get": {
                "tags": ["Snapshot"],
                "summary": "Metadata of the snapshot being served",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Snapshot info", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Snapshot not ready", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/admin/refresh": {
            "post": {
                "tags": ["Snapshot"],
                "summary": "Rebuild the snapshot from the table source",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "wait", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Refreshed synchronously", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Refresh queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Refresh API disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Superseded by a newer refresh", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "OfficerSummary": {
            "type": "object",
            "properties": {
                "officerId": {"type": "string"},
                "displayName": {"type": "string"},
                "employed": {"type": "boolean"},
                "status": {"type": "string"},
                "rank": {"type": "string"},
                "assignment": {"type": "string"},
                "salary": {"type": "string"}
            }
        },
        "ComplaintListItem": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "fileNumber": {"type": "string"},
                "incidentDate": {"type": "string"},
                "natureOfComplaint": {"type": "string"},
                "complainantAge": {"type": "string"},
                "complainantRace": {"type": "string"},
                "complainantGender": {"type": "string"}
            }
        },
        "OfficerSearchResponse": {
            "type": "object",
            "properties": {
                "query": {"type": "string"},
                "found": {"type": "boolean"},
                "officer": {"$ref": "#/definitions/OfficerSummary"},
                "complaints": {"type": "array", "items": {"$ref": "#/definitions/ComplaintListItem"}}
            }
        },
        "ComplaintDetail": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "fileNumber": {"type": "string"},
                "incidentDate": {"type": "string"},
                "incidentLocation": {"type": "string"},
                "natureOfComplaint": {"type": "string"},
                "statement": {"type": "string"},
                "rank": {"type": "string"},
                "assignment": {"type": "string"},
                "officerDistrict": {"type": "string"},
                "onDuty": {"type": "string"},
                "dutyStatus": {"type": "string", "enum": ["on", "off", "unknown"]},
                "district": {"type": "string"},
                "city": {"type": "string"}
            }
        },
        "LabelCount": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "AggregateResponse": {
            "type": "object",
            "properties": {
                "dimension": {"type": "string"},
                "window": {"type": "string"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/LabelCount"}},
                "total": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        },
        "OfficerSearchEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/OfficerSearchResponse"},
                "meta": {"type": "object"}
            }
        },
        "ComplaintDetailEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/ComplaintDetail"},
                "meta": {"type": "object"}
            }
        },
        "AggregateEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/AggregateResponse"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
