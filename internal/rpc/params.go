package rpc

import "encoding/json"

// remarshal round-trips v through JSON into out, the cheap way to turn a
// generic map[string]interface{} (what a JSON-decoded request body leaves
// you with) into a concrete, validatable request struct.
func remarshal(v interface{}, out interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
