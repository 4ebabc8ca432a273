package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// operation documents one route of the API.
type operation struct {
	method  string
	path    string
	summary string
	params  []string
	body    string
	status  string
}

var operations = []operation{
	{"get", "/templates", "List templates, optionally by category or query", []string{"category", "q", "fuzzy"}, "", "200"},
	{"post", "/templates", "Create a template", nil, "CreateInput", "201"},
	{"get", "/templates/{id}", "Get a template", nil, "", "200"},
	{"put", "/templates/{id}", "Update fields of a template", nil, "UpdateInput", "200"},
	{"delete", "/templates/{id}", "Delete a template", nil, "", "200"},
	{"post", "/templates/{id}/resolve", "Resolve a template with supplied values", nil, "ResolveRequest", "200"},
	{"get", "/categories", "List category names", nil, "", "200"},
	{"get", "/export", "Download the export document", []string{"format"}, "", "200"},
	{"post", "/sync", "Reload the template file from disk", nil, "", "200"},
	{"get", "/health", "Health check", nil, "", "200"},
}

func (s *APIServer) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(getOpenAPISpec()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write OpenAPI spec")
	}
}

// getOpenAPISpec builds the OpenAPI 3.0 document from the route table
func getOpenAPISpec() map[string]interface{} {
	paths := map[string]map[string]interface{}{}
	for _, op := range operations {
		if paths[op.path] == nil {
			paths[op.path] = map[string]interface{}{}
		}
		paths[op.path][op.method] = op.document()
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Prompt Manager API",
			"description": "Manage prompt templates and resolve their variables",
			"version":     "1.0.0",
		},
		"servers": []map[string]interface{}{
			{"url": "/api/v1"},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"success": map[string]string{"type": "boolean"},
						"error": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"code":    map[string]string{"type": "string"},
								"message": map[string]string{"type": "string"},
								"details": map[string]string{"type": "string"},
							},
						},
					},
				},
			},
		},
	}
}

func (op operation) document() map[string]interface{} {
	doc := map[string]interface{}{
		"summary": op.summary,
		"responses": map[string]interface{}{
			op.status: map[string]string{"description": "Success"},
			"default": map[string]interface{}{
				"description": "Error",
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]string{"$ref": "#/components/schemas/ErrorResponse"},
					},
				},
			},
		},
	}

	var params []map[string]interface{}
	if hasID(op.path) {
		params = append(params, map[string]interface{}{
			"name": "id", "in": "path", "required": true,
			"schema": map[string]string{"type": "string"},
		})
	}
	for _, name := range op.params {
		params = append(params, map[string]interface{}{
			"name": name, "in": "query", "required": false,
			"schema": map[string]string{"type": "string"},
		})
	}
	if len(params) > 0 {
		doc["parameters"] = params
	}

	if op.body != "" {
		doc["requestBody"] = map[string]interface{}{
			"required":    true,
			"description": op.body,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]string{"type": "object"},
				},
			},
		}
	}
	return doc
}

func hasID(path string) bool {
	return strings.Contains(path, "{id}")
}
