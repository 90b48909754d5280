package cipher

// Encrypt applies key cyclically over plain. A nil combiner means XOR.
func Encrypt(plain, key []byte, c Combiner) []byte {
	if c == nil {
		c = Default()
	}
	out := make([]byte, len(plain))
	if len(key) == 0 {
		copy(out, plain)
		return out
	}
	for i, p := range plain {
		out[i] = c.Encrypt(p, key[i%len(key)])
	}
	return out
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext, key []byte, c Combiner) []byte {
	if c == nil {
		c = Default()
	}
	out := make([]byte, len(ciphertext))
	if len(key) == 0 {
		copy(out, ciphertext)
		return out
	}
	for i, b := range ciphertext {
		out[i] = c.Decrypt(b, key[i%len(key)])
	}
	return out
}

// DecryptPartial decrypts with a possibly incomplete key, writing placeholder
// wherever the key byte is unknown.
func DecryptPartial(ciphertext []byte, key Key, c Combiner, placeholder byte) []byte {
	if c == nil {
		c = Default()
	}
	out := make([]byte, len(ciphertext))
	if len(key) == 0 {
		for i := range out {
			out[i] = placeholder
		}
		return out
	}
	for i, b := range ciphertext {
		kb := key[i%len(key)]
		if !kb.Known {
			out[i] = placeholder
			continue
		}
		out[i] = c.Decrypt(b, kb.Value)
	}
	return out
}
