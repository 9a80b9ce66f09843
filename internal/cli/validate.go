package cli

import (
	"errors"
	"strings"
)

// Validation runs before any network call; failures surface as transient
// notices and never mutate state.

func validateMobile(mobile string) error {
	if len(mobile) != 10 {
		return errors.New("enter a valid 10-digit mobile number")
	}
	for _, r := range mobile {
		if r < '0' || r > '9' {
			return errors.New("enter a valid 10-digit mobile number")
		}
	}
	return nil
}

func validateOTP(otp string) error {
	if len(otp) < 4 {
		return errors.New("enter the OTP")
	}
	return nil
}

func validateProfile(name, email, qualification, imagePath string) error {
	if name == "" || email == "" || qualification == "" || imagePath == "" {
		return errors.New("fill all fields")
	}
	if !strings.Contains(email, "@") {
		return errors.New("enter a valid email address")
	}
	return nil
}
