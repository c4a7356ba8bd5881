package bee

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitParamName(t *testing.T) {
	for _, tc := range []struct {
		testName  string
		paramName string
		parts     []string
		errStr    string
	}{
		{testName: "empty", paramName: "", errStr: "paramName must not be empty"},
		{testName: "top level key", paramName: "sortOrder", parts: []string{"sortOrder"}},
		{testName: "csrf field", paramName: "csrf_token", parts: []string{"csrf_token"}},
		{testName: "top level array key", paramName: "petIDs[]", parts: []string{"petIDs", paramNameArrayPart}},
		{testName: "nested attribute", paramName: "owner[address]", parts: []string{"owner", "address"}},
		{testName: "double nested attribute", paramName: "owner[pet][name]", parts: []string{"owner", "pet", "name"}},
		{testName: "double nested attribute array", paramName: "owner[pet][visits][]", parts: []string{"owner", "pet", "visits", paramNameArrayPart}},
		{testName: "not a nested name", paramName: "owner[address", parts: []string{"owner[address"}},
		{testName: "non word prefix", paramName: "-owner[address]", parts: []string{"-owner[address]"}},
		{testName: "nested array of object", paramName: "owner[pets][][name]", errStr: "paramName array part must be last element"},
	} {
		t.Run(tc.testName, func(t *testing.T) {
			parts, err := splitParamName(tc.paramName)
			if tc.errStr == "" {
				require.NoError(t, err)
				require.Equal(t, tc.parts, parts)
			} else {
				require.EqualError(t, err, tc.errStr)
			}
		})
	}
}

func TestSetNested(t *testing.T) {
	params := map[string]any{}
	setNested(params, []string{"owner", "city"}, []string{"Monona", "Madison"})
	setNested(params, []string{"owner", "petIDs", paramNameArrayPart}, []string{"1", "2"})
	setNested(params, []string{"sortOrder"}, []string{"desc"})

	require.Equal(t, map[string]any{
		"owner": map[string]any{
			"city":   "Madison",
			"petIDs": []string{"1", "2"},
		},
		"sortOrder": "desc",
	}, params)
}
