package analysis

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

func jsonBody(req *http.Request, v interface{}) error {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func gjsonGet(raw, path string) gjson.Result {
	return gjson.Get(raw, path)
}
