package mailer

import (
	"fmt"
	"time"
)

func OTPEmail(to, name, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your verification code",
		Body: fmt.Sprintf("Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n\nNamaste,\nThe studio team",
			name, code, int(ttl.Minutes())),
	}
}

func PasswordResetEmail(to, name, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Hi %s,\n\nUse the link below to choose a new password. It is valid for one hour.\n\n%s\n\nIf you did not ask for this, ignore this email.",
			name, link),
	}
}

func BookingEmail(to, name, classTitle string, at time.Time) Message {
	return Message{
		To:      to,
		Subject: "Booking confirmed: " + classTitle,
		Body: fmt.Sprintf("Hi %s,\n\nYou are booked into %s on %s.\n\nSee you on the mat.",
			name, classTitle, at.Format("Mon 2 Jan 2006, 15:04 MST")),
	}
}

func SubscriptionEmail(to, name, planName string, until time.Time) Message {
	return Message{
		To:      to,
		Subject: "Your " + planName + " membership is active",
		Body: fmt.Sprintf("Hi %s,\n\nThank you for subscribing to %s. Your membership runs until %s.",
			name, planName, until.Format("2 Jan 2006")),
	}
}
