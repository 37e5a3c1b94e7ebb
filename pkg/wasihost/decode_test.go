package wasihost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/gosurface/pkg/types"
)

func TestDecodeResponse(t *testing.T) {
	m, err := decodeResponse([]byte(`{"mesh":{"resolution":1,"positions":[[0,0,0],[0,0,1],[1,0,0],[1,0,1]],"uvs":[[0,0],[0,1],[1,0],[1,1]],"indices":[0,1,3,0,3,2],"normals":[[0,1,0],[0,1,0],[0,1,0],[0,1,0]]}}`))
	require.NoError(t, err)
	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 2, m.TriangleCount())

	_, err = decodeResponse([]byte(`{"error":{"code":"S0201","message":"Unexpected end of expression","position":2}}` + "\n"))
	var terr *types.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, types.ErrSyntaxError, terr.Code)
	assert.Equal(t, 2, terr.Position)

	_, err = decodeResponse([]byte(`{"error":{"message":"invalid request JSON","position":-1}}`))
	assert.EqualError(t, err, "invalid request JSON")

	_, err = decodeResponse(nil)
	assert.ErrorIs(t, err, ErrNoOutput)

	_, err = decodeResponse([]byte(`{}`))
	assert.ErrorIs(t, err, ErrNoOutput)

	_, err = decodeResponse([]byte(`garbage`))
	assert.Error(t, err)
}
