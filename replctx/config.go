package replctx

import "github.com/ingestkit/engine/config"

// FromConfig flattens a ProcessingConfig into "%config:<field>%" tokens and
// unions them into c, matching spec.md §3/§6/§4.6's
// get_replacement_mapping() which folds config fields into the same
// token space as transfer/file replacements.
func (c *Context) FromConfig(cfg config.ProcessingConfig) *Context {
	result := c
	for _, kv := range cfg.Flatten() {
		result = result.Set(kv.Token, kv.Value)
	}
	return result
}
