package ai

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

func reflectSchema(v any) map[string]any {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schemaJSON, _ := json.Marshal(r.Reflect(v))

	var m map[string]any
	_ = json.Unmarshal(schemaJSON, &m)
	// strict structured output rejects the meta keywords
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

var (
	ClassificationSchema = sync.OnceValue(func() map[string]any { return reflectSchema(&ClassificationPayload{}) })
	IdentificationSchema = sync.OnceValue(func() map[string]any { return reflectSchema(&IdentificationPayload{}) })
	RecipeListSchema     = sync.OnceValue(func() map[string]any { return reflectSchema(&RecipeListPayload{}) })
	RecipeSchema         = sync.OnceValue(func() map[string]any { return reflectSchema(&RecipePayload{}) })
)
