package json

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fwojciec/tabula"
)

// messageDTO is the JSON representation of a Message.
type messageDTO struct {
	Role            string              `json:"role"`
	Content         string              `json:"content"`
	Timestamp       string              `json:"timestamp"`
	Code            string              `json:"code,omitempty"`
	ExecutionResult *executionResultDTO `json:"execution_result,omitempty"`
}

type executionResultDTO struct {
	Output string       `json:"output"`
	Error  *string      `json:"error"`
	Result *artifactDTO `json:"result"`
}

// artifactDTO carries a type discriminator: "figure" with a path, or
// "table" with data. Older transcripts call tables "dataframe".
type artifactDTO struct {
	Type string    `json:"type"`
	Path string    `json:"path,omitempty"`
	Data *tableDTO `json:"data,omitempty"`
}

func marshalMessage(msg tabula.Message) messageDTO {
	dto := messageDTO{
		Role:      string(msg.Role),
		Content:   msg.Content,
		Timestamp: formatTime(msg.Timestamp),
		Code:      msg.Code,
	}
	if msg.Result != nil {
		dto.ExecutionResult = marshalResult(*msg.Result)
	}
	return dto
}

func marshalResult(r tabula.ExecutionResult) *executionResultDTO {
	dto := &executionResultDTO{Output: r.Output}
	if r.Error != "" {
		e := r.Error
		dto.Error = &e
	}
	switch a := r.Artifact.(type) {
	case tabula.Figure:
		dto.Result = &artifactDTO{Type: "figure", Path: a.Path}
	case tabula.TableArtifact:
		data := marshalTable(a.Table)
		dto.Result = &artifactDTO{Type: "table", Data: &data}
	}
	return dto
}

func unmarshalMessage(dto messageDTO) (tabula.Message, error) {
	role := tabula.Role(dto.Role)
	if !role.Valid() {
		return tabula.Message{}, fmt.Errorf("unknown role: %q", dto.Role)
	}
	ts, err := parseTime(dto.Timestamp)
	if err != nil {
		return tabula.Message{}, err
	}
	msg := tabula.Message{
		Role:      role,
		Content:   dto.Content,
		Timestamp: ts,
		Code:      dto.Code,
	}
	if dto.ExecutionResult != nil {
		r, err := unmarshalResult(*dto.ExecutionResult)
		if err != nil {
			return tabula.Message{}, err
		}
		msg.Result = &r
	}
	return msg, nil
}

func unmarshalResult(dto executionResultDTO) (tabula.ExecutionResult, error) {
	r := tabula.ExecutionResult{Output: dto.Output}
	if dto.Error != nil {
		r.Error = *dto.Error
	}
	if dto.Result == nil {
		return r, nil
	}
	switch dto.Result.Type {
	case "figure":
		r.Artifact = tabula.Figure{Path: dto.Result.Path}
	case "table", "dataframe":
		if dto.Result.Data == nil {
			return tabula.ExecutionResult{}, errors.New("table result without data")
		}
		t, err := unmarshalTable(*dto.Result.Data)
		if err != nil {
			return tabula.ExecutionResult{}, fmt.Errorf("table result: %w", err)
		}
		r.Artifact = tabula.TableArtifact{Table: t}
	default:
		return tabula.ExecutionResult{}, fmt.Errorf("unknown result type: %q", dto.Result.Type)
	}
	return r, nil
}

// MarshalMessages serializes a transcript as a JSON array.
func MarshalMessages(msgs []tabula.Message) ([]byte, error) {
	dtos := make([]messageDTO, len(msgs))
	for i, msg := range msgs {
		dtos[i] = marshalMessage(msg)
	}
	return json.MarshalIndent(dtos, "", "  ")
}

// UnmarshalMessages deserializes a transcript written by MarshalMessages.
func UnmarshalMessages(data []byte) ([]tabula.Message, error) {
	var dtos []messageDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	msgs := make([]tabula.Message, len(dtos))
	for i, dto := range dtos {
		msg, err := unmarshalMessage(dto)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// UnmarshalResult decodes an execution result envelope of the form
// {output, error, result}.
func UnmarshalResult(data []byte) (tabula.ExecutionResult, error) {
	var dto executionResultDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return tabula.ExecutionResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return unmarshalResult(dto)
}
