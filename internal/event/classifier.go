package event

import (
	"context"
	"net"
	"strings"

	"netgate/internal/config"
	"netgate/internal/constants"
	"netgate/internal/logger"
)

// Classifier decides whether an inventory change event needs external
// credential validation and extracts the fields the validator call needs.
type Classifier struct {
	cfg config.ValidationConfig
	log logger.Logger
}

func NewClassifier(cfg config.ValidationConfig, log logger.Logger) *Classifier {
	return &Classifier{
		cfg: cfg,
		log: log,
	}
}

// IsDevice reports whether the event concerns a device. The inventory
// system namespaces its models ("dcim.device"); only the final segment is
// compared.
func (c *Classifier) IsDevice(ev *ChangeEvent) bool {
	model := ev.Model
	if idx := strings.LastIndex(model, "."); idx >= 0 {
		model = model[idx+1:]
	}
	return strings.EqualFold(model, constants.DeviceEntityType)
}

// Required reports whether the event must pass validation before it may be
// forwarded: device creations only, and only when validation is enabled.
// Updates and deletions always bypass validation.
func (c *Classifier) Required(ev *ChangeEvent) bool {
	return c.cfg.Enabled && c.IsDevice(ev) && ev.Kind == KindCreated
}

// Credentials builds the validation request projection for a device event.
// Returns ErrMissingIPAddress when no usable management IP can be derived.
func (c *Classifier) Credentials(ctx context.Context, ev *ChangeEvent) (CredentialView, error) {
	ip := c.primaryIP(ev)
	if ip == "" {
		return CredentialView{}, ErrMissingIPAddress
	}

	username := c.customField(ev, constants.CustomFieldUsername, constants.CustomFieldSSHUsername)
	if username == "" {
		username = c.cfg.DefaultDeviceUsername
		c.log.WarnwCtx(ctx, "Event carries no device username, applying configured default",
			"device", ev.DeviceRef(),
		)
	}

	password := c.customField(ev, constants.CustomFieldPassword, constants.CustomFieldSSHPassword)
	if password == "" {
		password = c.cfg.DefaultDevicePassword
		c.log.WarnwCtx(ctx, "Event carries no device password, applying configured default",
			"device", ev.DeviceRef(),
		)
	}

	return CredentialView{
		IPAddress: ip,
		Username:  username,
		Password:  password,
	}, nil
}

// primaryIP prefers primary_ip4, then primary_ip, then a device name that
// is itself an IP literal. The CIDR suffix is stripped.
func (c *Classifier) primaryIP(ev *ChangeEvent) string {
	for _, ref := range []*IPRef{ev.Data.PrimaryIP4, ev.Data.PrimaryIP} {
		if ref == nil {
			continue
		}
		if addr := stripCIDR(ref.Address); addr != "" {
			return addr
		}
	}

	if name := ev.Data.Name; name != "" && net.ParseIP(name) != nil {
		return name
	}

	return ""
}

func (c *Classifier) customField(ev *ChangeEvent, keys ...string) string {
	for _, key := range keys {
		raw, ok := ev.Data.CustomFields[key]
		if !ok {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			continue
		}
		// The inventory API serializes empty custom fields as the
		// literal string "None".
		if value == "" || value == "None" {
			continue
		}
		return value
	}
	return ""
}

func stripCIDR(address string) string {
	if address == "" || address == "None" {
		return ""
	}
	if idx := strings.Index(address, "/"); idx >= 0 {
		return address[:idx]
	}
	return address
}
