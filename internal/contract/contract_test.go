package contract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultContractRoutes(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)

	var got []string
	for _, r := range doc.Routes() {
		got = append(got, r.String()+" "+r.OperationID)
	}
	assert.Equal(t, []string{
		"GET /restaurants getRestaurants",
		"POST /restaurants addRestaurant",
		"DELETE /restaurants/{id} deleteRestaurant",
		"GET /restaurants/{id} getRestaurant",
		"PATCH /restaurants/{id} updateRestaurant",
		"PUT /restaurants/{id} replaceRestaurant",
	}, got)

	assert.Equal(t, []string{
		"addRestaurant", "deleteRestaurant", "getRestaurant", "getRestaurants", "replaceRestaurant", "updateRestaurant",
	}, doc.OperationIDs())
}

func TestDefaultContractBodies(t *testing.T) {
	doc, err := Default()
	require.NoError(t, err)

	byName := map[string]Route{}
	for _, r := range doc.Routes() {
		byName[r.String()] = r
	}

	post := byName["POST /restaurants"]
	assert.True(t, post.HasBody)
	assert.True(t, post.BodyNeeded)
	assert.Empty(t, post.Wildcards)
	assert.Equal(t, "/restaurants", post.pattern)

	get := byName["GET /restaurants/{id}"]
	assert.False(t, get.HasBody)
	assert.Equal(t, []string{"id"}, get.Wildcards)
	require.NotNil(t, get.spec)
	assert.Equal(t, "getRestaurant", get.spec.Operation.OperationID)
}

const minimalContract = `
openapi: "3.0.3"
info: {title: t, version: "1"}
paths:
  /things/{id}:
    get:
      operationId: getThing
      parameters:
        - {name: id, in: path, required: true, schema: {type: string}}
      responses:
        "200": {description: ok}
`

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "no paths",
			doc:     "openapi: \"3.0.3\"\ninfo: {title: t, version: \"1\"}\npaths: {}\n",
			wantErr: "no paths",
		},
		{
			name: "missing operationId",
			doc:  strings.Replace(minimalContract, "operationId: getThing", "summary: x", 1),
		},
		{
			name: "undeclared template param",
			doc:  strings.Replace(minimalContract, "name: id", "name: other", 1),
		},
		{
			name: "unresolved schema ref",
			doc:  strings.Replace(minimalContract, "schema: {type: string}", `schema: {$ref: "#/components/schemas/Nope"}`, 1),
		},
		{
			name: "operationId on two paths",
			doc: minimalContract + `
  /others:
    get:
      operationId: getThing
      responses:
        "200": {description: ok}
`,
		},
		{
			name: "wildcard name not an identifier",
			doc: strings.NewReplacer(
				"/things/{id}:", "/things/{thing-id}:",
				"name: id", "name: thing-id",
			).Replace(minimalContract),
			wantErr: "Go identifier",
		},
		{
			name: "partial segment param",
			doc: strings.NewReplacer(
				"/things/{id}:", "/things/{id}.json:",
			).Replace(minimalContract),
		},
		{
			name: "paths differ only by wildcard name",
			doc: minimalContract + `
  /things/{key}:
    delete:
      operationId: deleteThing
      parameters:
        - {name: key, in: path, required: true, schema: {type: string}}
      responses:
        "204": {description: ok}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMuxPattern(t *testing.T) {
	tests := []struct {
		path      string
		pattern   string
		wildcards []string
		wantErr   bool
	}{
		{path: "/restaurants", pattern: "/restaurants"},
		{path: "/restaurants/{id}", pattern: "/restaurants/{id}", wildcards: []string{"id"}},
		{path: "/a/{x}/b/{y_2}", pattern: "/a/{x}/b/{y_2}", wildcards: []string{"x", "y_2"}},
		{path: "/", pattern: "/{$}"},
		{path: "/menus/", pattern: "/menus/{$}"},
		{path: "/items/{item-id}", wantErr: true},
		{path: "/items/{id...}", wantErr: true},
		{path: "/items/{$}", wantErr: true},
		{path: "/items/{1st}", wantErr: true},
		{path: "/a/{x}/b/{x}", wantErr: true},
		{path: "/a b", wantErr: true},
		{path: "items", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			pattern, names, err := muxPattern(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pattern, pattern)
			assert.Equal(t, tt.wildcards, names)
		})
	}
}

func TestNormalizedKey(t *testing.T) {
	assert.Equal(t, normalizedKey("/a/{x}"), normalizedKey("/a/{y}"))
	assert.NotEqual(t, normalizedKey("/a/{x}"), normalizedKey("/b/{x}"))
}

func TestParseRejectsOversizedDocument(t *testing.T) {
	_, err := Parse(make([]byte, MaxDocumentSize+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalContract), 0o600))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"getThing"}, doc.OperationIDs())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
