package sender

import "encoding/json"

type textBody struct {
	SenderAlias string `json:"sender_alias"`
	Content     string `json:"content"`
}

func jsonTextBody(alias, content string) ([]byte, error) {
	return json.Marshal(textBody{SenderAlias: alias, Content: content})
}
