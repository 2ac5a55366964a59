// Package api provides the civicwatch triage REST API, its server-sent event
// stream and its WebSocket stream.
//
//	@title						civicwatch API
//	@version					1.0
//	@description				Citizen crime report triage and incident response
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package api
