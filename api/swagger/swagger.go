package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Weekly timetable generation, rebalancing and versioned storage for schools",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Generation, rebalancing and export of class weeks"},
        {"name": "Timetable Versions", "description": "Saved drafts and published versions"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/timetables/default-config": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Standard school week",
                "parameters": [
                    {"name": "days", "in": "query", "type": "integer", "enum": [5, 6]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid days", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/classify": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Derive weekly periods per subject",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassifySubjectsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate timetables for every class of a school",
                "description": "Validation and under-allocation diagnostics are returned in the body. meta.complete is false when any were reported.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get a generated run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Timetable"],
                "summary": "Drop an unsaved run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Discarded"},
                    "404": {"description": "Run not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}/rebalance": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Rebuild one class day after its anchors changed",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RebalanceTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run or class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Day configuration rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}/save": {
            "post": {
                "tags": ["Timetable Versions"],
                "summary": "Save a run as a draft version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SaveTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run already saved", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Run has validation errors", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Persistence disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/runs/{id}/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download a class week",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "classId", "in": "query", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "404": {"description": "Run or class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetable Versions"],
                "summary": "List saved timetable versions",
                "parameters": [
                    {"name": "schoolId", "in": "query", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/saved/{id}/blocks": {
            "get": {
                "tags": ["Timetable Versions"],
                "summary": "Get stored blocks of a saved version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/saved/{id}/publish": {
            "post": {
                "tags": ["Timetable Versions"],
                "summary": "Publish a saved version",
                "description": "Archives the previously published version of the same school and term.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version archived", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/saved/{id}": {
            "delete": {
                "tags": ["Timetable Versions"],
                "summary": "Delete a draft version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "No draft with this id", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/saved/{id}/archive": {
            "get": {
                "tags": ["Timetable Versions"],
                "summary": "Signed download links of an archived version",
                "description": "One entry per class. ready is false until the background render has written the file. meta.ready counts ready entries.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Version not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Version is still a draft", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/archive/{token}": {
            "get": {
                "tags": ["Timetable Versions"],
                "summary": "Download an archived class timetable",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "File no longer present", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Interval": {
            "type": "object",
            "required": ["start", "end"],
            "properties": {
                "start": {"type": "string", "example": "10:20"},
                "end": {"type": "string", "example": "10:40"}
            }
        },
        "DayAnchors": {
            "type": "object",
            "required": ["start", "end", "morningBreak"],
            "properties": {
                "start": {"type": "string", "example": "09:00"},
                "end": {"type": "string", "example": "17:00"},
                "morningBreak": {"$ref": "#/definitions/Interval"},
                "lunchBreak": {"$ref": "#/definitions/Interval"},
                "afternoonBreak": {"$ref": "#/definitions/Interval"}
            }
        },
        "DayConfig": {
            "allOf": [
                {"$ref": "#/definitions/DayAnchors"},
                {"type": "object", "required": ["weekday"], "properties": {"weekday": {"type": "integer", "minimum": 1, "maximum": 7}}}
            ]
        },
        "SubjectLoad": {
            "type": "object",
            "required": ["subjectId"],
            "properties": {
                "subjectId": {"type": "string"},
                "annualHours": {"type": "number"},
                "credits": {"type": "number"},
                "practicalHours": {"type": "number"},
                "isExamSubject": {"type": "boolean"}
            }
        },
        "ClassConfig": {
            "type": "object",
            "required": ["classId", "days"],
            "properties": {
                "classId": {"type": "string"},
                "days": {"type": "array", "items": {"$ref": "#/definitions/DayConfig"}}
            }
        },
        "ClassOverride": {
            "type": "object",
            "required": ["appliesTo", "days"],
            "properties": {
                "appliesTo": {"type": "array", "items": {"type": "string"}},
                "days": {"type": "array", "items": {"$ref": "#/definitions/DayConfig"}}
            }
        },
        "SchoolConfig": {
            "type": "object",
            "required": ["days"],
            "properties": {
                "days": {"type": "array", "items": {"$ref": "#/definitions/DayConfig"}},
                "overrides": {"type": "array", "items": {"$ref": "#/definitions/ClassOverride"}}
            }
        },
        "ForbiddenWindow": {
            "type": "object",
            "required": ["weekday", "start", "end"],
            "properties": {
                "classId": {"type": "string"},
                "weekday": {"type": "integer"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "label": {"type": "string"}
            }
        },
        "Assignment": {
            "type": "object",
            "required": ["teacherId", "subjectId", "classId"],
            "properties": {
                "teacherId": {"type": "string"},
                "subjectId": {"type": "string"},
                "classId": {"type": "string"}
            }
        },
        "ClassifySubjectsRequest": {
            "type": "object",
            "required": ["subjects"],
            "properties": {
                "examTerm": {"type": "boolean"},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/SubjectLoad"}}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["schoolId", "termId", "subjects", "assignments"],
            "properties": {
                "schoolId": {"type": "string"},
                "termId": {"type": "string"},
                "examTerm": {"type": "boolean"},
                "periodMinutes": {"type": "integer", "minimum": 10, "maximum": 120},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/SubjectLoad"}},
                "school": {"$ref": "#/definitions/SchoolConfig"},
                "classes": {"type": "array", "items": {"$ref": "#/definitions/ClassConfig"}},
                "forbidden": {"type": "array", "items": {"$ref": "#/definitions/ForbiddenWindow"}},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/Assignment"}}
            }
        },
        "RebalanceTimetableRequest": {
            "type": "object",
            "required": ["classId", "weekday", "day"],
            "properties": {
                "classId": {"type": "string"},
                "weekday": {"type": "integer", "minimum": 1, "maximum": 7},
                "day": {"$ref": "#/definitions/DayAnchors"},
                "forbidden": {"type": "array", "items": {"$ref": "#/definitions/ForbiddenWindow"}},
                "pinned": {"type": "array", "items": {"type": "string"}, "description": "Start times of subject blocks that keep their slot"}
            }
        },
        "SaveTimetableRequest": {
            "type": "object",
            "properties": {
                "meta": {"type": "object"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ArchiveLink": {
            "type": "object",
            "properties": {
                "classId": {"type": "string"},
                "ready": {"type": "boolean"},
                "url": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
