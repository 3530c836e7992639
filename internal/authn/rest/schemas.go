package rest

// Request body schemas. Embedded as strings so validation needs nothing from
// the filesystem.

const userRegistrationSchema = `
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "UserRegistration",
	"type": "object",
	"required": ["id", "password"],
	"additionalProperties": false,
	"properties": {
		"id": {
			"type": "string",
			"minLength": 3,
			"maxLength": 254
		},
		"name": {
			"type": "string",
			"maxLength": 100
		},
		"password": {
			"type": "string",
			"minLength": 8,
			"maxLength": 72
		}
	}
}`

const credentialsSchema = `
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "Credentials",
	"type": "object",
	"required": ["id", "password"],
	"additionalProperties": false,
	"properties": {
		"id": {
			"type": "string",
			"minLength": 1
		},
		"password": {
			"type": "string",
			"minLength": 1
		}
	}
}`

const passwordUpdateSchema = `
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "PasswordUpdate",
	"type": "object",
	"required": ["password"],
	"additionalProperties": false,
	"properties": {
		"password": {
			"type": "string",
			"minLength": 8,
			"maxLength": 72
		}
	}
}`
