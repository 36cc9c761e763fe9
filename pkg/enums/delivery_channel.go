package enums

import "fmt"

// DeliveryChannel identifies which mailer dispatched a fulfillment email.
type DeliveryChannel string

const (
	DeliveryChannelSendgrid DeliveryChannel = "sendgrid"
	DeliveryChannelSMTP     DeliveryChannel = "smtp"
	DeliveryChannelLog      DeliveryChannel = "log"
)

var validDeliveryChannels = []DeliveryChannel{
	DeliveryChannelSendgrid,
	DeliveryChannelSMTP,
	DeliveryChannelLog,
}

// String implements fmt.Stringer.
func (d DeliveryChannel) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryChannel.
func (d DeliveryChannel) IsValid() bool {
	for _, candidate := range validDeliveryChannels {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryChannel converts raw input into a DeliveryChannel.
func ParseDeliveryChannel(value string) (DeliveryChannel, error) {
	for _, candidate := range validDeliveryChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery channel %q", value)
}
