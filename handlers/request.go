package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bookiovoice/models"
)

// decodeToolRequest reads a webhook body. The voice platform may nest the
// tool arguments under "parameters" and may send numbers as strings, so the
// body is read loosely instead of binding straight into ToolRequest.
func decodeToolRequest(body []byte) (models.ToolRequest, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.ToolRequest{}, err
	}
	if raw == nil {
		return models.ToolRequest{}, fmt.Errorf("empty body")
	}
	if params, ok := raw["parameters"].(map[string]any); ok {
		for k, v := range params {
			if _, exists := raw[k]; !exists {
				raw[k] = v
			}
		}
	}

	req := models.ToolRequest{
		Action:   str(raw, "action"),
		ToolName: str(raw, "tool_name", "toolName"),
		Service:  str(raw, "service", "service_name", "serviceName"),
		Location: str(raw, "location", "branch"),
		Date:     str(raw, "date"),
		Time:     str(raw, "time"),
		Name:     str(raw, "name", "customer_name", "customerName"),
		Phone:    str(raw, "phone", "phone_number", "phoneNumber"),
		Email:    str(raw, "email"),
		Note:     str(raw, "note"),
		Query:    str(raw, "query", "search"),
	}
	if id, ok := integer(raw, "service_id", "serviceId"); ok {
		req.ServiceID = id
	}
	if id, ok := integer(raw, "worker_id", "workerId"); ok {
		req.WorkerID = &id
	}
	return req, nil
}

func str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func integer(raw map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
