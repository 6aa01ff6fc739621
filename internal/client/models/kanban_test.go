package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCardUpdate_OmitsNilFields(t *testing.T) {
	pos := 0
	b, err := json.Marshal(CardUpdate{Position: &pos})
	require.NoError(t, err)
	require.JSONEq(t, `{"position":0}`, string(b))

	list := int64(7)
	b, err = json.Marshal(CardUpdate{Position: &pos, ListID: &list})
	require.NoError(t, err)
	require.JSONEq(t, `{"position":0,"list_id":7}`, string(b))
}

func TestCard_NullDescriptionDecodesEmpty(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"a","description":null,"position":2,"list_id":3}`), &c))
	require.Equal(t, Card{ID: 1, Name: "a", Position: 2, ListID: 3}, c)
}
