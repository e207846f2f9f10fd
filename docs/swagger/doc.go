// Package swagger provides OpenAPI documentation for the GridFlow API.
//
//	@title						GridFlow API
//	@version					1.0
//	@description				GridFlow is a workflow orchestration engine for building and running automated workflows.
//	@termsOfService				https://github.com/gridflow/gridflow
//
//	@contact.name				GridFlow Support
//	@contact.url				https://github.com/gridflow/gridflow/issues
//	@contact.email				support@gridflow.io
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token authentication. Format: "Bearer {token}"
//
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				API Key authentication for service-to-service calls
//
//	@tag.name					workflows
//	@tag.description			Workflow management operations
//
//	@tag.name					executions
//	@tag.description			Workflow execution operations
//
//	@tag.name					triggers
//	@tag.description			Trigger management operations
//
//	@tag.name					nodes
//	@tag.description			Node management within workflows
//
//	@tag.name					edges
//	@tag.description			Edge (connection) management within workflows
//
//	@tag.name					auth
//	@tag.description			Authentication operations
//
//	@tag.name					resources
//	@tag.description			Resource management (credentials, files, etc.)
//
//	@tag.name					service-api
//	@tag.description			Service API operations for programmatic access
package swagger
