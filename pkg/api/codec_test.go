package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestJSONCodec_PlainMessages(t *testing.T) {
	codec := JSONCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&ResolveInviteResponse{Status: ResolveSuspended, GroupID: "g1", ContinuationToken: "tok"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"suspended","groupId":"g1","continuationToken":"tok"}`, string(data))

	var req CreateGroupRequest
	require.NoError(t, codec.Unmarshal([]byte(`{"name":"Alpha","constitution":{"cycleDuration":30,"meetingFrequency":"weekly"}}`), &req))
	assert.Equal(t, "Alpha", req.Name)
	require.NotNil(t, req.Constitution)
	assert.Equal(t, int32(30), req.Constitution.CycleDuration)
}

func TestJSONCodec_ProtoMessages(t *testing.T) {
	codec := JSONCodec{}

	data, err := codec.Marshal(&emptypb.Empty{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	assert.NoError(t, codec.Unmarshal([]byte(`{}`), &emptypb.Empty{}))
	assert.NoError(t, codec.Unmarshal(nil, &emptypb.Empty{}))
	assert.Error(t, codec.Unmarshal([]byte(`[`), &emptypb.Empty{}))
}

func TestJSONCodec_EmptyBody(t *testing.T) {
	var req GetGroupViewRequest
	require.NoError(t, JSONCodec{}.Unmarshal(nil, &req))
	assert.Empty(t, req.GroupID)
}
