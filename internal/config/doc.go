// Package config loads the parley application configuration and the
// service descriptor for the managed messaging deployment.
//
// # Application configuration
//
// The application config is a YAML file with ${ENV_VAR} expansion:
//
//	descriptor:
//	  path: ./configFile.json
//	database:
//	  path: ~/.local/share/parley/parley.db
//	verification:
//	  required: false
//	  secret: ${PARLEY_VERIFICATION_SECRET}
//	logging:
//	  level: info
//	  format: text
//
// Load parses, expands environment variables, and validates in one step.
//
// # Service descriptor
//
// The descriptor is a static JSON resource identifying one deployment of
// the messaging service:
//
//	{
//	  "organization_id": "org-00D...",
//	  "deployment_name": "Parley_Web",
//	  "service_url": "https://example.my.service.test"
//	}
//
// The adapter never interprets these values beyond validation; they are
// handed to the messaging client as-is.
package config
