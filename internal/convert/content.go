package convert

import (
	"github.com/cxy13h/chat-to-responses-proxy/internal/core"
	"github.com/cxy13h/chat-to-responses-proxy/internal/util"
)

func isTextLikeType(t string) bool {
	switch t {
	case core.ContentBlockTypeText, core.PartTypeInputText, core.PartTypeOutputText:
		return true
	}
	return false
}

func isImageLikeType(t string) bool {
	switch t {
	case core.ContentBlockTypeImageURL, core.PartTypeInputImage, "image":
		return true
	}
	return false
}

// ExtractTextContent flattens heterogeneous message content into plain text.
// Strings pass through, part lists concatenate their text-bearing parts in
// order, image parts are dropped. Never fails; unknown shapes degrade to
// their JSON representation.
func ExtractTextContent(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		var out string
		for _, item := range v {
			switch part := item.(type) {
			case string:
				out += part
			case map[string]any:
				if isImageLikeType(util.StringField(part, "type")) {
					continue
				}
				if text, ok := part["text"].(string); ok {
					out += text
				}
			}
		}
		return out
	case map[string]any:
		if text, ok := v["text"].(string); ok {
			return text
		}
		return util.CoerceString(v, "")
	default:
		return util.CoerceString(v, "")
	}
}

// ToUpstreamParts converts chat message content into Responses input content:
// either a plain string or an ordered input_text/input_image part list.
// Unrecognized object parts pass through unmodified so unknown part types
// survive the translation. An empty part list degrades to an empty string;
// callers must never send a part array with nothing in it.
func ToUpstreamParts(content any) any {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		parts := make([]any, 0, len(v))
		for _, item := range v {
			switch part := item.(type) {
			case string:
				parts = append(parts, core.TextPart{Type: core.PartTypeInputText, Text: part})
			case map[string]any:
				partType := util.StringField(part, "type")
				switch {
				case isTextLikeType(partType):
					text, _ := part["text"].(string)
					parts = append(parts, core.TextPart{Type: core.PartTypeInputText, Text: text})
				case isImageLikeType(partType):
					if url := resolveImageURL(part); url != "" {
						parts = append(parts, core.ImagePart{Type: core.PartTypeInputImage, ImageURL: url})
					}
				default:
					parts = append(parts, part)
				}
			}
		}
		if len(parts) == 0 {
			return ""
		}
		return parts
	default:
		return ExtractTextContent(content)
	}
}

// resolveImageURL reads the image reference from either a bare URL string or
// a nested {url: ...} object under image_url/url.
func resolveImageURL(part map[string]any) string {
	for _, key := range []string{core.ContentBlockTypeImageURL, "url"} {
		switch ref := part[key].(type) {
		case string:
			if ref != "" {
				return ref
			}
		case map[string]any:
			if url := util.StringField(ref, "url"); url != "" {
				return url
			}
		}
	}
	return ""
}
