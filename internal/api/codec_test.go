package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestCodecUsesProtoJSONForMessages(t *testing.T) {
	msg, err := structpb.NewStruct(map[string]any{"status": "ok"})
	require.NoError(t, err)

	data, err := Codec{}.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	var back structpb.Struct
	require.NoError(t, Codec{}.Unmarshal([]byte(`{"status":"ok","extra":1}`), &back))
	assert.Equal(t, "ok", back.GetFields()["status"].GetStringValue())
}

func TestCodecUsesEncodingJSONForPlainStructs(t *testing.T) {
	data, err := Codec{}.Marshal(&CreateNodeRequest{UniverseID: "u", Link: "l", Plot: "p", PreviousID: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"universeId":"u","link":"l","plot":"p","previousId":3}`, string(data))

	var req GetLeavesRequest
	require.NoError(t, Codec{}.Unmarshal(nil, &req))
	assert.Empty(t, req.UniverseID)
	assert.Equal(t, "json", Codec{}.Name())
}
