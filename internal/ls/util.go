package ls

import (
	"encoding/json"
)

type initOptions struct {
	SpecPath string `json:"specPath"`
}

func readInitializationOptions(options any) initOptions {
	if options == nil {
		return initOptions{}
	}

	data, err := json.Marshal(options)
	if err != nil {
		return initOptions{}
	}

	var decoded initOptions
	if err := json.Unmarshal(data, &decoded); err != nil {
		return initOptions{}
	}

	return decoded
}
