package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgate/internal/config"
	"netgate/internal/logger"
)

func enabledConfig() config.ValidationConfig {
	return config.ValidationConfig{
		Enabled:               true,
		DefaultDeviceUsername: "fallback-user",
		DefaultDevicePassword: "fallback-pass",
	}
}

func TestIsDevice(t *testing.T) {
	c := NewClassifier(enabledConfig(), logger.NopLogger())

	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "namespaced device", model: "dcim.device", want: true},
		{name: "bare device", model: "device", want: true},
		{name: "mixed case", model: "dcim.Device", want: true},
		{name: "interface", model: "dcim.interface", want: false},
		{name: "ip address model", model: "ipam.ipaddress", want: false},
		{name: "empty model", model: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &ChangeEvent{Model: tt.model}
			assert.Equal(t, tt.want, c.IsDevice(ev))
		})
	}
}

func TestRequired(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		kind    Kind
		model   string
		want    bool
	}{
		{name: "device created", enabled: true, kind: KindCreated, model: "dcim.device", want: true},
		{name: "device updated bypasses", enabled: true, kind: KindUpdated, model: "dcim.device", want: false},
		{name: "device deleted bypasses", enabled: true, kind: KindDeleted, model: "dcim.device", want: false},
		{name: "validation disabled", enabled: false, kind: KindCreated, model: "dcim.device", want: false},
		{name: "non-device created", enabled: true, kind: KindCreated, model: "dcim.interface", want: false},
		{name: "unknown kind", enabled: true, kind: KindUnknown, model: "dcim.device", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledConfig()
			cfg.Enabled = tt.enabled
			c := NewClassifier(cfg, logger.NopLogger())
			ev := &ChangeEvent{Kind: tt.kind, Model: tt.model}
			assert.Equal(t, tt.want, c.Required(ev))
		})
	}
}

func TestCredentials(t *testing.T) {
	c := NewClassifier(enabledConfig(), logger.NopLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		data    DeviceData
		want    CredentialView
		wantErr bool
	}{
		{
			name: "primary ip4 with cidr suffix",
			data: DeviceData{
				Name:       "edge-router-01",
				PrimaryIP4: &IPRef{Address: "10.4.160.240/32"},
				CustomFields: map[string]interface{}{
					"username": "admin",
					"password": "secret",
				},
			},
			want: CredentialView{IPAddress: "10.4.160.240", Username: "admin", Password: "secret"},
		},
		{
			name: "primary ip fallback when ip4 absent",
			data: DeviceData{
				Name:      "edge-router-02",
				PrimaryIP: &IPRef{Address: "192.168.1.5/24"},
			},
			want: CredentialView{IPAddress: "192.168.1.5", Username: "fallback-user", Password: "fallback-pass"},
		},
		{
			name: "name as ip literal",
			data: DeviceData{Name: "172.16.0.9"},
			want: CredentialView{IPAddress: "172.16.0.9", Username: "fallback-user", Password: "fallback-pass"},
		},
		{
			name: "ssh custom field names",
			data: DeviceData{
				PrimaryIP4: &IPRef{Address: "10.0.0.1"},
				CustomFields: map[string]interface{}{
					"ssh_username": "netops",
					"ssh_password": "hunter2",
				},
			},
			want: CredentialView{IPAddress: "10.0.0.1", Username: "netops", Password: "hunter2"},
		},
		{
			name: "username precedence over ssh_username",
			data: DeviceData{
				PrimaryIP4: &IPRef{Address: "10.0.0.2"},
				CustomFields: map[string]interface{}{
					"username":     "primary",
					"ssh_username": "secondary",
				},
			},
			want: CredentialView{IPAddress: "10.0.0.2", Username: "primary", Password: "fallback-pass"},
		},
		{
			name: "literal None custom fields ignored",
			data: DeviceData{
				PrimaryIP4: &IPRef{Address: "10.0.0.3"},
				CustomFields: map[string]interface{}{
					"username": "None",
					"password": "None",
				},
			},
			want: CredentialView{IPAddress: "10.0.0.3", Username: "fallback-user", Password: "fallback-pass"},
		},
		{
			name: "non-string custom fields ignored",
			data: DeviceData{
				PrimaryIP4: &IPRef{Address: "10.0.0.4"},
				CustomFields: map[string]interface{}{
					"username": 42,
				},
			},
			want: CredentialView{IPAddress: "10.0.0.4", Username: "fallback-user", Password: "fallback-pass"},
		},
		{
			name:    "no ip anywhere",
			data:    DeviceData{Name: "edge-router-03"},
			wantErr: true,
		},
		{
			name:    "None address and no fallback",
			data:    DeviceData{Name: "core-sw-1", PrimaryIP4: &IPRef{Address: "None"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &ChangeEvent{Kind: KindCreated, Model: "dcim.device", Data: tt.data}
			got, err := c.Credentials(ctx, ev)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMissingIPAddress)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
