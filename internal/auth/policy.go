package auth

// CanMutate は認証済み利用者がリソースの所有者本人かを判定します。
func CanMutate(ac AuthContext, resourceOwnerID string) bool {
	return ac.UserID == resourceOwnerID
}
