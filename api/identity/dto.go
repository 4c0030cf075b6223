package identity

// AuthRequest carries operator credentials.
type AuthRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned on a successful login.
type AuthResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	RunQuota int    `json:"run_quota"`
	Token    string `json:"token"`
}
