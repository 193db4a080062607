package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Creche Admission API",
        "description": "Enrollment lifecycle and annual transition engine for public childcare seats",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http"],
    "tags": [
        {"name": "Applicants", "description": "Enrollment lifecycle actions"},
        {"name": "Waitlist", "description": "Ranked waitlist read model"},
        {"name": "Planning", "description": "Annual transition planning workflow"},
        {"name": "Seats", "description": "Seat occupancy"},
        {"name": "Audit", "description": "Append-only history"}
    ],
    "paths": {
        "/applicants": {
            "get": {
                "tags": ["Applicants"],
                "summary": "List applicants",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "facilityId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Applicants"],
                "summary": "Register a child on the waitlist",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterApplicantRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/applicants/{id}": {
            "get": {
                "tags": ["Applicants"],
                "summary": "Get applicant detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/applicants/{id}/call-up": {
            "post": {
                "tags": ["Applicants"],
                "summary": "Offer a seat and start the response deadline",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CallUpRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/applicants/{id}/confirm": {
            "post": {
                "tags": ["Applicants"],
                "summary": "Confirm enrollment into the offered seat",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/waitlist": {
            "get": {
                "tags": ["Waitlist"],
                "summary": "Ranked waitlist with the called-up section",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planning/session": {
            "post": {
                "tags": ["Planning"],
                "summary": "Start or reload the planning session",
                "parameters": [{"name": "year", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "get": {
                "tags": ["Planning"],
                "summary": "Current planning entries and dirty flag",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/planning/execute": {
            "post": {
                "tags": ["Planning"],
                "summary": "Commit the draft as a batch of remote mutations",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/seats": {
            "get": {
                "tags": ["Seats"],
                "summary": "List seats with occupancy",
                "parameters": [{"name": "facilityId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit entries",
                "parameters": [{"name": "applicantId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "RegisterApplicantRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "birth_date": {"type": "string"},
                "social_program": {"type": "boolean"},
                "preferred_facility_id": {"type": "string"},
                "secondary_facility_id": {"type": "string"},
                "accepts_any_facility": {"type": "boolean"},
                "guardian_name": {"type": "string"},
                "guardian_phone": {"type": "string"},
                "guardian_email": {"type": "string"},
                "address": {"type": "string"},
                "notes": {"type": "string"}
            },
            "required": ["full_name", "birth_date", "guardian_name", "guardian_phone"]
        },
        "CallUpRequest": {
            "type": "object",
            "properties": {
                "facility_id": {"type": "string"},
                "classroom_id": {"type": "string"},
                "deadline_days": {"type": "integer"}
            },
            "required": ["facility_id", "classroom_id"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
