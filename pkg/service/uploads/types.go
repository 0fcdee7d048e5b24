package uploads

import "encoding/json"

// UploadRequest is the JSON body sent by clients to request an upload URL.
type UploadRequest struct {
	Extension string `json:"extension"`
	// CollectionID prefixes the object key. Clients send it as tierListId.
	CollectionID string `json:"tierListId"`
}

// UnmarshalJSON reads only the exact keys extension and tierListId. Keys
// differing in case are ignored, unlike the default struct decoding.
func (r *UploadRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var req UploadRequest
	if raw, ok := fields["extension"]; ok {
		if err := json.Unmarshal(raw, &req.Extension); err != nil {
			return err
		}
	}
	if raw, ok := fields["tierListId"]; ok {
		if err := json.Unmarshal(raw, &req.CollectionID); err != nil {
			return err
		}
	}
	*r = req
	return nil
}

// UploadResponse is returned when an upload URL was issued.
type UploadResponse struct {
	ObjectKey string `json:"s3ObjectName"`
	UploadURL string `json:"uploadUrl"`
}

// FixedUploadResponse is returned by the fixed key handler.
type FixedUploadResponse struct {
	Message string `json:"message"`
	GUID    string `json:"guid"`
}

// ErrorResponse is returned for any failed request. Both fields carry the
// same text.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
