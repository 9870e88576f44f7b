package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {"title": "DMR API", "description": "Digital medical record teaching backend", "version": "1.0.0"},
    "basePath": "/",
    "schemes": ["http"],
    "securityDefinitions": {"BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}},
    "tags": [
        {"name": "Authentication", "description": "Token issuance"},
        {"name": "Patients", "description": "Patient registry"},
        {"name": "Observations", "description": "Bedside observations"},
        {"name": "DiagnosticRequests", "description": "Imaging and blood test workflow"},
        {"name": "Files", "description": "Patient document management"},
        {"name": "FileAccess", "description": "Gated document access"},
        {"name": "FileReleases", "description": "Manual releases to student groups"},
        {"name": "Dashboard", "description": "Instructor overview"},
        {"name": "System", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {"tags": ["System"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "tags": ["System"],
                "summary": "Readiness check",
                "responses": {"200": {"description": "Ready"}, "503": {"description": "Unavailable"}}
            }
        },
        "/metrics": {
            "get": {"tags": ["System"], "summary": "Prometheus metrics", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate account",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Too many attempts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current account",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke the current bearer token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/patients": {
            "get": {
                "tags": ["Patients"],
                "summary": "List patients",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "ward", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Patients"],
                "summary": "Register patient",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/PatientRequest"}
                    }
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/patients/{patientId}": {
            "get": {
                "tags": ["Patients"],
                "summary": "Get patient",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patientId", "in": "path", "required": true, "type": "string", "description": "Patient ID"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Patients"],
                "summary": "Update patient",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patientId", "in": "path", "required": true, "type": "string", "description": "Patient ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/PatientRequest"}
                    }
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Patients"],
                "summary": "Delete patient",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patientId", "in": "path", "required": true, "type": "string", "description": "Patient ID"}
                ],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/patients/{patientId}/files": {
            "get": {
                "tags": ["FileAccess"],
                "summary": "List patient files",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patientId", "in": "path", "required": true, "type": "string", "description": "Patient ID"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Files"],
                "summary": "Upload patient file",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patientId", "in": "path", "required": true, "type": "string", "description": "Patient ID"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"},
                    {"name": "display_name", "in": "formData", "type": "string"},
                    {"name": "category", "in": "formData", "type": "string"},
                    {"name": "requires_pagination", "in": "formData", "type": "boolean"}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/patients/{patientId}/files/{fileId}": {
            "get": {
                "tags": ["FileAccess"],
                "summary": "Patient file metadata",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patientId", "in": "path", "required": true, "type": "string", "description": "Patient ID"},
                    {"name": "fileId", "in": "path", "required": true, "type": "string", "description": "File ID"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/patients/{patientId}/files/{fileId}/view": {
            "get": {
                "tags": ["FileAccess"],
                "summary": "View patient file",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patientId", "in": "path", "required": true, "type": "string", "description": "Patient ID"},
                    {"name": "fileId", "in": "path", "required": true, "type": "string", "description": "File ID"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pages", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Document", "schema": {"type": "file"}},
                    "400": {"description": "Pages outside document", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Pages outside grant", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/observations": {
            "get": {
                "tags": ["Observations"],
                "summary": "List observations grouped by type",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patient_id", "in": "query", "type": "string"},
                    {"name": "types", "in": "query", "type": "string"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "ordering", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Observations"],
                "summary": "Record observations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/ObservationBundleRequest"}
                    }
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/observations/export": {
            "get": {
                "tags": ["Observations"],
                "summary": "Export observations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "patient_id", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "PDF or CSV", "schema": {"type": "file"}}}
            }
        },
        "/api/v1/observations/{kind}": {
            "get": {
                "tags": ["Observations"],
                "summary": "List observations of one type",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "kind",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Observation type"
                    },
                    {"name": "patient_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/observations/{kind}/{id}": {
            "get": {
                "tags": ["Observations"],
                "summary": "Get observation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "kind",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Observation type"
                    },
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Observation ID"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Observations"],
                "summary": "Update observation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "kind",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Observation type"
                    },
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Observation ID"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Observations"],
                "summary": "Delete observation",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "kind",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Observation type"
                    },
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Observation ID"}
                ],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/diagnostic-requests": {
            "get": {
                "tags": ["DiagnosticRequests"],
                "summary": "List own diagnostic requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "patient_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["DiagnosticRequests"],
                "summary": "Create diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/DiagnosticRequestInput"}
                    }
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/diagnostic-requests/{id}": {
            "get": {
                "tags": ["DiagnosticRequests"],
                "summary": "Get diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "Request ID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["DiagnosticRequests"],
                "summary": "Update pending diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Request ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/DiagnosticRequestUpdate"}
                    }
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["DiagnosticRequests"],
                "summary": "Delete pending diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "Request ID"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/instructor/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Instructor dashboard",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/instructor/diagnostic-requests": {
            "get": {
                "tags": ["DiagnosticRequests"],
                "summary": "List diagnostic requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "patient_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["DiagnosticRequests"],
                "summary": "Create diagnostic request on behalf of an account",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/DiagnosticRequestInput"}
                    }
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/instructor/diagnostic-requests/pending": {
            "get": {
                "tags": ["DiagnosticRequests"],
                "summary": "List pending diagnostic requests",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/instructor/diagnostic-requests/stats": {
            "get": {
                "tags": ["DiagnosticRequests"],
                "summary": "Diagnostic request counts",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/instructor/diagnostic-requests/{id}": {
            "get": {
                "tags": ["DiagnosticRequests"],
                "summary": "Get diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "Request ID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["DiagnosticRequests"],
                "summary": "Update diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Request ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/DiagnosticRequestUpdate"}
                    }
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["DiagnosticRequests"],
                "summary": "Delete diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string", "description": "Request ID"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/instructor/diagnostic-requests/{id}/status": {
            "patch": {
                "tags": ["DiagnosticRequests"],
                "summary": "Transition diagnostic request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Request ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/StatusUpdateRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Status changed concurrently", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Transition not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/files/{fileId}": {
            "get": {
                "tags": ["Files"],
                "summary": "File metadata",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "fileId", "in": "path", "required": true, "type": "string", "description": "File ID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["Files"],
                "summary": "Update file metadata",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "fileId", "in": "path", "required": true, "type": "string", "description": "File ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UpdateFileRequest"}
                    }
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Files"],
                "summary": "Delete file",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "fileId", "in": "path", "required": true, "type": "string", "description": "File ID"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/api/v1/files/{fileId}/release": {
            "post": {
                "tags": ["FileReleases"],
                "summary": "Release file to student groups",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "fileId", "in": "path", "required": true, "type": "string", "description": "File ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/ManualReleaseRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already released", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/files/{fileId}/approved-files": {
            "get": {
                "tags": ["FileReleases"],
                "summary": "List grants on a file",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "fileId", "in": "path", "required": true, "type": "string", "description": "File ID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/approved-files/{id}": {
            "patch": {
                "tags": ["FileReleases"],
                "summary": "Change grant page range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Approved file ID"},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UpdateReleaseRequest"}
                    }
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["FileReleases"],
                "summary": "Revoke grant",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string", "description": "Approved file ID"}
                ],
                "responses": {"204": {"description": "Revoked"}}
            }
        },
        "/api/v1/student-groups": {
            "get": {
                "tags": ["FileReleases"],
                "summary": "List student group accounts",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "search", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}},
            "required": ["username", "password"]
        },
        "PatientRequest": {
            "type": "object",
            "properties": {
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "date_of_birth": {"type": "string"},
                "gender": {"type": "string"},
                "mrn": {"type": "string"},
                "ward": {"type": "string"},
                "bed": {"type": "string"},
                "phone_number": {"type": "string"}
            },
            "required": ["first_name", "mrn"]
        },
        "ObservationBundleRequest": {
            "type": "object",
            "properties": {
                "note": {"$ref": "#/definitions/NoteInput"},
                "blood_pressure": {"$ref": "#/definitions/BloodPressureInput"},
                "heart_rate": {"$ref": "#/definitions/HeartRateInput"},
                "body_temperature": {"$ref": "#/definitions/BodyTemperatureInput"},
                "respiratory_rate": {"$ref": "#/definitions/RespiratoryRateInput"},
                "blood_sugar": {"$ref": "#/definitions/BloodSugarInput"},
                "oxygen_saturation": {"$ref": "#/definitions/OxygenSaturationInput"},
                "pain_score": {"$ref": "#/definitions/PainScoreInput"}
            }
        },
        "NoteInput": {
            "type": "object",
            "properties": {"patient": {"type": "string"}, "user": {"type": "string"}, "content": {"type": "string"}},
            "required": ["patient"]
        },
        "BloodPressureInput": {
            "type": "object",
            "properties": {
                "patient": {"type": "string"},
                "user": {"type": "string"},
                "systolic": {"type": "integer"},
                "diastolic": {"type": "integer"}
            },
            "required": ["patient"]
        },
        "HeartRateInput": {
            "type": "object",
            "properties": {"patient": {"type": "string"}, "user": {"type": "string"}, "heart_rate": {"type": "integer"}},
            "required": ["patient"]
        },
        "BodyTemperatureInput": {
            "type": "object",
            "properties": {"patient": {"type": "string"}, "user": {"type": "string"}, "temperature": {"type": "number"}},
            "required": ["patient"]
        },
        "RespiratoryRateInput": {
            "type": "object",
            "properties": {"patient": {"type": "string"}, "user": {"type": "string"}, "respiratory_rate": {"type": "integer"}},
            "required": ["patient"]
        },
        "BloodSugarInput": {
            "type": "object",
            "properties": {"patient": {"type": "string"}, "user": {"type": "string"}, "sugar_level": {"type": "number"}},
            "required": ["patient"]
        },
        "OxygenSaturationInput": {
            "type": "object",
            "properties": {
                "patient": {"type": "string"},
                "user": {"type": "string"},
                "saturation_percentage": {"type": "integer"}
            },
            "required": ["patient"]
        },
        "PainScoreInput": {
            "type": "object",
            "properties": {"patient": {"type": "string"}, "user": {"type": "string"}, "score": {"type": "integer"}},
            "required": ["patient"]
        },
        "DiagnosticRequestInput": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "patient": {"type": "string"},
                "user": {"type": "string"},
                "test_type": {"type": "string"},
                "test_types": {"type": "array", "items": {"type": "string"}},
                "details": {"type": "string"},
                "imaging_focus": {"type": "string"},
                "infection_control_precautions": {"type": "string"},
                "requester_name": {"type": "string"},
                "requester_role": {"type": "string"}
            },
            "required": ["kind", "patient"]
        },
        "DiagnosticRequestUpdate": {
            "type": "object",
            "properties": {
                "test_type": {"type": "string"},
                "test_types": {"type": "array", "items": {"type": "string"}},
                "details": {"type": "string"},
                "imaging_focus": {"type": "string"},
                "infection_control_precautions": {"type": "string"},
                "requester_name": {"type": "string"},
                "requester_role": {"type": "string"}
            }
        },
        "ApprovedFileInput": {
            "type": "object",
            "properties": {"file_id": {"type": "string"}, "page_range": {"type": "string"}},
            "required": ["file_id"]
        },
        "StatusUpdateRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "note": {"type": "string"},
                "approved_files": {"type": "array", "items": {"$ref": "#/definitions/ApprovedFileInput"}}
            },
            "required": ["status"]
        },
        "UpdateFileRequest": {
            "type": "object",
            "properties": {
                "display_name": {"type": "string"},
                "category": {"type": "string"},
                "requires_pagination": {"type": "boolean"}
            }
        },
        "ManualReleaseRequest": {
            "type": "object",
            "properties": {
                "student_group_ids": {"type": "array", "items": {"type": "string"}},
                "page_range": {"type": "string"}
            },
            "required": ["student_group_ids"]
        },
        "UpdateReleaseRequest": {"type": "object", "properties": {"page_range": {"type": "string"}}},
        "Pagination": {
            "type": "object",
            "properties": {"page": {"type": "integer"}, "page_size": {"type": "integer"}, "total_count": {"type": "integer"}}
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
