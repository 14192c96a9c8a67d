package param

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	params map[string]string
	pages  [][]string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(v)}}, nil
}

func (f *fakeSSM) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	page := 0
	if in.NextToken != nil {
		page = 1
	}
	out := &ssm.GetParametersByPathOutput{}
	for _, v := range f.pages[page] {
		out.Parameters = append(out.Parameters, types.Parameter{Value: aws.String(v)})
	}
	if page+1 < len(f.pages) {
		out.NextToken = aws.String("next")
	}
	return out, nil
}

func TestParameterStoreFetcher_Fetch(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{"/fusionbot/hf-token": "hf_secret"}}
	f := &ParameterStoreFetcher{client: fake}

	v, err := f.Fetch(context.Background(), "/fusionbot/hf-token")
	require.NoError(t, err)
	assert.Equal(t, "hf_secret", v)

	_, err = f.Fetch(context.Background(), "/missing")
	assert.ErrorContains(t, err, "/missing")
}

func TestParameterStoreFetcher_FetchAllFollowsPages(t *testing.T) {
	fake := &fakeSSM{pages: [][]string{{"action pose", "close-up portrait"}, {"under the sea"}}}
	f := &ParameterStoreFetcher{client: fake}

	v, err := f.FetchAll(context.Background(), "/fusionbot/variations")

	require.NoError(t, err)
	assert.Equal(t, []string{"action pose", "close-up portrait", "under the sea"}, v)
}

func TestResolve(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{"/token": "from-ssm"}}
	f := &ParameterStoreFetcher{client: fake}
	ctx := context.Background()

	v, err := Resolve(ctx, f, "", "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	v, err = Resolve(ctx, f, "/token", "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-ssm", v)

	all, err := ResolveAll(ctx, f, "", []string{"default"})
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, all)
}
