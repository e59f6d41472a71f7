package ports

// SecurityPort encrypts and decrypts sensitive fields before they reach a
// repository: phone numbers and raw national ID numbers. Keeping it behind
// an interface lets the cipher be swapped without touching business logic.
type SecurityPort interface {
	Encrypt(plaintext []byte) (ciphertext []byte, err error)
	Decrypt(ciphertext []byte) (plaintext []byte, err error)
}
