// Package http exposes groups and sessions over a chi router.
//
// Requests are validated against the OpenAPI document served on /openapi.yaml.
// Routes under /admin require the admin bearer token and answer 404 otherwise.
package http
