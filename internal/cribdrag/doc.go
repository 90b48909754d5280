// Package cribdrag implements interactive crib dragging against a
// repeating-key ciphertext.
//
// The operator places a guessed plaintext fragment (the crib) at an offset,
// previews the key bytes it implies and the plaintext they reveal, moves it
// around, and commits the guesses that look right. Session.Apply is the pure
// state transition; Session.Run wraps it in a line-oriented REPL.
//
// Crib and key arguments use a small literal syntax:
//
//	crib "as\"df\x10\n jkl"
//	key ['a', '\x01', None, 0x41]
//
// The parser only understands quoted strings, byte escapes, integers and
// None. It never evaluates its input.
package cribdrag
