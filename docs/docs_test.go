package docs_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"

	"github.com/bluesystem/verifika/docs"
)

func TestRegisteredDocument(t *testing.T) {
	raw, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]struct {
			Security []map[string][]string `json:"security"`
		} `json:"paths"`
		SecurityDefinitions map[string]any `json:"securityDefinitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	require.Equal(t, "Verifika API", doc.Info.Title)
	require.Contains(t, doc.SecurityDefinitions, "BearerAuth")

	require.Contains(t, doc.Paths, "/api/contact")
	require.Contains(t, doc.Paths["/api/competencias/most-demanded"], "get")
	require.Empty(t, doc.Paths["/api/auth/login"]["post"].Security)
	require.NotEmpty(t, doc.Paths["/api/auth/me"]["get"].Security)
}
