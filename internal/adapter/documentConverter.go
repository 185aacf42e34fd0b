package adapter

import (
	"time"

	"github.com/docpanel/docflow/internal/api"
	"github.com/docpanel/docflow/internal/domain/docModel"
)

func ToDocumentData(doc docModel.Document) api.DocumentData {
	return api.DocumentData{
		Id:               doc.Id,
		DivisionId:       doc.DivisionId,
		OriginalFilename: doc.OriginalFilename,
		FileType:         doc.FileType,
		Status:           string(doc.Status),
		IsActive:         doc.IsActive,
		CreatedTime:      doc.CreatedTime,
		UpdatedTime:      doc.UpdatedTime,
	}
}

func ToDocumentList(docs []docModel.Document) []api.DocumentData {
	out := make([]api.DocumentData, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ToDocumentData(doc))
	}
	return out
}

func Success(message string, data any) api.Envelope {
	return api.Envelope{
		Status:    "success",
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func Failure(message string, errText string) api.Envelope {
	return api.Envelope{
		Status:    "error",
		Message:   message,
		Error:     errText,
		Timestamp: time.Now(),
	}
}
