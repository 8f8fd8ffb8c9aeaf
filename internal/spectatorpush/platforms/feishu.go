package platforms

import (
	"context"
	"strings"
)

type FeishuAdapter struct {
	client *HTTPClient
}

func NewFeishuAdapter(client *HTTPClient) *FeishuAdapter {
	return &FeishuAdapter{client: client}
}

func (a *FeishuAdapter) Name() string {
	return "feishu"
}

// Send posts an interactive card. secret, when set, travels as the
// X-Lark-Signature header.
func (a *FeishuAdapter) Send(ctx context.Context, endpoint, secret string, msg Message) error {
	elements := []map[string]string{{
		"tag":  "markdown",
		"text": fallback(msg.Description, msg.Content),
	}}
	for _, f := range msg.Fields {
		elements = append(elements, map[string]string{
			"tag":  "markdown",
			"text": "**" + f.Name + "**: " + f.Value,
		})
	}
	payload := map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"header": map[string]any{
				"title": map[string]any{
					"tag":     "plain_text",
					"content": msg.Title,
				},
				"template": cardTemplate(msg.Color),
			},
			"elements": elements,
		},
	}
	var headers map[string]string
	if s := strings.TrimSpace(secret); s != "" {
		headers = map[string]string{"X-Lark-Signature": s}
	}
	return a.client.PostJSON(ctx, endpoint, headers, payload)
}

// cardTemplate picks the card header theme closest to an embed RGB color.
func cardTemplate(rgb int) string {
	r, g, b := rgb>>16&0xff, rgb>>8&0xff, rgb&0xff
	hi, lo := max(r, g, b), min(r, g, b)
	switch {
	case rgb == 0:
		return "blue"
	case hi-lo < 0x30:
		return "grey"
	case r > 0xc0 && g > 0xc0:
		return "yellow"
	case r == hi:
		return "red"
	case g == hi:
		return "green"
	default:
		return "blue"
	}
}

func fallback(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
