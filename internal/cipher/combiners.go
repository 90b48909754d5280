package cipher

// XOROp combines bytes with bitwise exclusive or. It is self-inverse.
type XOROp struct {
	BaseCombiner
}

func (op *XOROp) Encrypt(plain, key byte) byte      { return plain ^ key }
func (op *XOROp) Decrypt(cipher, key byte) byte     { return cipher ^ key }
func (op *XOROp) DeriveKey(cipher, plain byte) byte { return cipher ^ plain }

// AddOp encrypts with addition modulo 256.
type AddOp struct {
	BaseCombiner
}

func (op *AddOp) Encrypt(plain, key byte) byte      { return plain + key }
func (op *AddOp) Decrypt(cipher, key byte) byte     { return cipher - key }
func (op *AddOp) DeriveKey(cipher, plain byte) byte { return cipher - plain }

// SubOp encrypts by subtracting the key byte modulo 256.
type SubOp struct {
	BaseCombiner
}

func (op *SubOp) Encrypt(plain, key byte) byte      { return plain - key }
func (op *SubOp) Decrypt(cipher, key byte) byte     { return cipher + key }
func (op *SubOp) DeriveKey(cipher, plain byte) byte { return plain - cipher }

// XOR is the default combiner.
var XOR Combiner = &XOROp{
	BaseCombiner: BaseCombiner{
		NameValue:        "xor",
		DescriptionValue: "Bitwise exclusive or (self-inverse)",
	},
}

// Default returns the combiner used when none is configured.
func Default() Combiner {
	return XOR
}

// init registers the built-in combiners
func init() {
	add := &AddOp{
		BaseCombiner: BaseCombiner{
			NameValue:        "add",
			DescriptionValue: "Addition modulo 256 (c = p + k)",
		},
	}
	sub := &SubOp{
		BaseCombiner: BaseCombiner{
			NameValue:        "sub",
			DescriptionValue: "Subtraction modulo 256 (c = p - k)",
		},
	}

	RegisterCombiner(XOR)
	RegisterCombiner(add)
	RegisterCombiner(sub)
}
