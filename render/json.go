package render

import (
	"encoding/json"
	"fmt"
	"io"
)

// ItemsResponse is the JSON document for a list of aggregated items.
type ItemsResponse struct {
	Items      []Item   `json:"items"`
	Total      int      `json:"total"`
	Tags       []string `json:"tags,omitempty"`
	Vocabulary []string `json:"vocabulary"`
}

// NewItemsResponse builds the JSON view of page.
func NewItemsResponse(page Page) ItemsResponse {
	vocabulary := page.Vocabulary
	if vocabulary == nil {
		vocabulary = []string{}
	}
	return ItemsResponse{
		Items:      page.ViewItems(),
		Total:      len(page.Items),
		Tags:       page.AllowedTags,
		Vocabulary: vocabulary,
	}
}

// JSON writes page as an indented JSON document.
func JSON(w io.Writer, page Page) error {
	data, err := json.MarshalIndent(NewItemsResponse(page), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}
