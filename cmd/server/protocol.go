// Package main provides a TCP repository server for DatasetDB.
package main

import (
	"encoding/json"
)

// Request represents one repository operation from the client.
type Request struct {
	Op          string   `json:"op"`
	Ref         string   `json:"ref,omitempty"`
	Name        string   `json:"name,omitempty"`
	Tag         string   `json:"tag,omitempty"`
	Pointer     string   `json:"pointer,omitempty"`
	Parents     []string `json:"parents,omitempty"`
	Description *string  `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Force       bool     `json:"force,omitempty"`
	NameFilter  string   `json:"name_filter,omitempty"`
	TagFilter   string   `json:"tag_filter,omitempty"`
}

// Response represents the server's response to an operation.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// LineageResponse carries a lineage query result.
type LineageResponse struct {
	Versions []json.RawMessage `json:"versions"`
	Dangling []string          `json:"dangling,omitempty"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

func okResponse(typ string, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errResponse(err)
	}
	return Response{Success: true, Type: typ, Result: data}
}

func errResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}
