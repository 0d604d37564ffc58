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

type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	lastIn *ssm.GetParameterInput
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.lastIn = in
	return f.getOut, f.getErr
}

func secureParam(value string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name:  aws.String("/tasting-log/line-channel-token"),
		Value: aws.String(value),
		Type:  types.ParameterTypeSecureString,
	}}
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{getOut: secureParam(`{"token":"abc"}`)}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), " /tasting-log/line-channel-token ")
	require.NoError(t, err)
	require.Equal(t, `{"token":"abc"}`, v)
	require.Equal(t, "/tasting-log/line-channel-token", aws.ToString(api.lastIn.Name))
	require.True(t, aws.ToBool(api.lastIn.WithDecryption))
}

func TestGetParameter_NotFound(t *testing.T) {
	api := &fakeAPI{getErr: &types.ParameterNotFound{Message: aws.String("nope")}}
	client, err := New(api)
	require.NoError(t, err)

	_, err = client.GetParameter(context.Background(), "/missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorContains(t, err, "/missing")
}

func TestGetParameter_Errors(t *testing.T) {
	cases := []struct {
		name    string
		api     *fakeAPI
		param   string
		wantErr string
	}{
		{name: "api error", api: &fakeAPI{getErr: errors.New("boom")}, param: "p", wantErr: "boom"},
		{name: "missing value", api: &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: aws.String("p")}}}, param: "p", wantErr: "missing value"},
		{name: "nil output", api: &fakeAPI{}, param: "p", wantErr: "missing value"},
		{name: "empty name", api: &fakeAPI{}, param: "  ", wantErr: "required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := New(tc.api)
			require.NoError(t, err)
			_, err = client.GetParameter(context.Background(), tc.param)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "not initialized")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}
