package firebase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare object", input: `{"appId": "1:123:android:abc"}`, want: "1:123:android:abc"},
		{name: "cli envelope", input: `{"status": "success", "result": {"appId": "1:123:ios:def", "bundleId": "com.example.app"}}`, want: "1:123:ios:def"},
		{name: "null id", input: `{"appId": null}`, wantErr: true},
		{name: "empty object", input: `{}`, wantErr: true},
		{name: "null sentinel string", input: `{"appId": "null"}`, wantErr: true},
		{name: "empty string", input: `{"appId": ""}`, wantErr: true},
		{name: "null in envelope", input: `{"status": "success", "result": {"appId": null}}`, wantErr: true},
		{name: "not json", input: `✔ Creating app`, wantErr: true},
		{name: "empty input", input: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAppID([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMissingAppID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister_CreatesApp(t *testing.T) {
	svc := &fakeService{createRes: map[Platform]string{Android: `{"appId": "1:123:android:abc"}`}}
	reg, err := NewRegistrar(svc, quiet()).Register(context.Background(), "my-app-123", Android, "com.example.app", "my-app-123")
	require.NoError(t, err)
	assert.True(t, reg.Created)
	assert.Equal(t, App{Platform: Android, PackageName: "com.example.app", AppID: "1:123:android:abc"}, reg.App)
	assert.Equal(t, []Platform{Android}, svc.creates)
}

func TestRegister_ReusesExistingApp(t *testing.T) {
	existing := App{Platform: IOS, PackageName: "com.example.app", AppID: "1:123:ios:def"}
	svc := &fakeService{apps: map[Platform][]App{IOS: {
		{Platform: IOS, PackageName: "com.other.app", AppID: "1:123:ios:zzz"},
		existing,
	}}}

	reg, err := NewRegistrar(svc, quiet()).Register(context.Background(), "my-app-123", IOS, "com.example.app", "x")
	require.NoError(t, err)
	assert.False(t, reg.Created)
	assert.Equal(t, existing, reg.App)
	assert.Empty(t, svc.creates)
}

func TestRegister_RejectsMalformedResponse(t *testing.T) {
	for _, body := range []string{`{"appId": null}`, `{}`} {
		t.Run(body, func(t *testing.T) {
			svc := &fakeService{createRes: map[Platform]string{Android: body}}
			_, err := NewRegistrar(svc, quiet()).Register(context.Background(), "my-app-123", Android, "com.example.app", "x")
			assert.ErrorIs(t, err, ErrMissingAppID)
			assert.Len(t, svc.creates, 1, "registration is attempted once")
		})
	}
}

func TestRegister_CreateFailure(t *testing.T) {
	svc := &fakeService{createErr: errors.New("quota exceeded")}
	_, err := NewRegistrar(svc, quiet()).Register(context.Background(), "my-app-123", IOS, "com.example.app", "x")
	assert.ErrorContains(t, err, "failed to create iOS app: quota exceeded")
}

func TestRegister_ListFailure(t *testing.T) {
	svc := &fakeService{listErr: errors.New("boom")}
	_, err := NewRegistrar(svc, quiet()).Register(context.Background(), "my-app-123", IOS, "com.example.app", "x")
	assert.ErrorContains(t, err, "boom")
	assert.Empty(t, svc.creates)
}
