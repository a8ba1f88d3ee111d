package api

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SendEmailOTPRequest requests a login code by email.
type SendEmailOTPRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// VerifyEmailOTPRequest exchanges an emailed code for tokens.
type VerifyEmailOTPRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	FullName string `json:"full_name"`
}

// SendPhoneOTPRequest requests a login code by SMS.
type SendPhoneOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// VerifyPhoneOTPRequest exchanges an SMS code for tokens.
type VerifyPhoneOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest changes the caller's profile fields. Nil fields are
// left untouched.
type UpdateProfileRequest struct {
	Name           *string `json:"name"`
	DisplayPicture *string `json:"display_picture"`
}

// AddFriendRequest links another user to the caller's friend list.
type AddFriendRequest struct {
	FriendID string `json:"friend_id"`
}

// CreateNookRequest creates a nook with an initial member set.
type CreateNookRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

// RenameNookRequest changes a nook's name.
type RenameNookRequest struct {
	Name string `json:"name"`
}

// AddMembersRequest adds users to a nook.
type AddMembersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// InviteResponse carries a generated invite code.
type InviteResponse struct {
	Code string `json:"code"`
}
