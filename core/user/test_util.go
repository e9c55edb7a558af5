package user

// ResetPasswordToken returns the token usr would receive by mail to reset their password.
func ResetPasswordToken(svc Service, usr User) string {
	if s, ok := svc.(*service); ok {
		return s.resetGen.makeToken(usr)
	}
	return ""
}

// EmailVerificationToken returns the token usr would receive by mail to verify their email.
func EmailVerificationToken(svc Service, usr User) string {
	if s, ok := svc.(*service); ok {
		return s.verifyGen.makeToken(usr)
	}
	return ""
}
