package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI records the requested name and returns canned output.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	names  []string
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.names = append(f.names, aws.ToString(in.Name))
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("decryption not requested")
	}
	return f.getOut, f.getErr
}

func valueOutput(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: aws.String("p"), Value: aws.String(v), Type: types.ParameterTypeSecureString,
	}}
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: valueOutput(`{"token":"v"}`)}
	client, err := New(api)
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, `{"token":"v"}`, v)
	require.Equal(t, []string{"p"}, api.names)
}

func TestGetParameter_PrefixedName(t *testing.T) {
	api := &fakeAPI{getOut: valueOutput("x")}
	client, err := New(api, WithPrefix("/room-designer/"))
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "open-ai-token")
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "/shared/token")
	require.NoError(t, err)
	require.Equal(t, []string{"/room-designer/open-ai-token", "/shared/token"}, api.names)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: aws.String("p")}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{}, WithPrefix("/room-designer"))
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.ErrorContains(t, err, "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

func TestGetField(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		want    string
		wantErr string
	}{
		{name: "token present", value: `{"token":"sk-123"}`, want: "sk-123"},
		{name: "missing field", value: `{"other":"v"}`, wantErr: "is empty"},
		{name: "blank field", value: `{"token":"  "}`, wantErr: "is empty"},
		{name: "non-string field", value: `{"token":42}`, wantErr: "is empty"},
		{name: "malformed json", value: `{"broken`, wantErr: "unmarshal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := New(&fakeAPI{getOut: valueOutput(tc.value)}, WithPrefix("/room-designer"))
			require.NoError(t, err)
			got, err := client.GetField(context.Background(), "open-ai-token", "token")
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}
