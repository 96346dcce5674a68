package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ShanTirmizi/incident-response-system/internal/incident"
)

// MaxBodyBytes bounds request bodies; a maximal refine request is well below it.
const MaxBodyBytes = 1 << 20

// DecodeTranscriptRequest reads, validates, and trims an analyze request.
func DecodeTranscriptRequest(r io.Reader) (TranscriptRequest, error) {
	var req TranscriptRequest
	if err := decodeBody(r, &req); err != nil {
		return TranscriptRequest{}, err
	}
	if err := incident.ValidateStruct(req); err != nil {
		return TranscriptRequest{}, err
	}
	req.Transcript = strings.TrimSpace(req.Transcript)
	req.AdditionalContext = strings.TrimSpace(req.AdditionalContext)
	return req, nil
}

// DecodeFeedbackRequest reads, validates, and trims a refine request. The
// embedded original response must itself be a valid result.
func DecodeFeedbackRequest(r io.Reader) (FeedbackRequest, error) {
	var req FeedbackRequest
	if err := decodeBody(r, &req); err != nil {
		return FeedbackRequest{}, err
	}
	if err := incident.ValidateStruct(req); err != nil {
		return FeedbackRequest{}, err
	}
	req.Feedback = strings.TrimSpace(req.Feedback)
	return req, nil
}

func decodeBody(r io.Reader, target any) error {
	dec := json.NewDecoder(io.LimitReader(r, MaxBodyBytes))
	if err := dec.Decode(target); err != nil {
		var verr *incident.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return &incident.ValidationError{Fields: []string{
				fmt.Sprintf("%s: must be %s", typeErr.Field, typeErr.Type.String()),
			}}
		}
		if errors.Is(err, io.EOF) {
			return &incident.ValidationError{Fields: []string{"body: field required"}}
		}
		return &incident.ValidationError{Fields: []string{"body: invalid JSON: " + err.Error()}}
	}
	return nil
}
