package analysis

// Relative English letter frequencies, a to z, in percent.
var englishFrequencies = [26]float64{
	8.167, 1.492, 2.782, 4.253, 12.702, 2.228, 2.015,
	6.094, 6.966, 0.153, 0.772, 4.025, 2.406, 6.749,
	7.507, 1.929, 0.095, 5.987, 6.327, 9.056, 2.758,
	0.978, 2.360, 0.150, 1.974, 0.074,
}

var englishDistribution = func() [26]float64 {
	var total float64
	for _, f := range englishFrequencies {
		total += f
	}
	var dist [26]float64
	for i, f := range englishFrequencies {
		dist[i] = f / total
	}
	return dist
}()

type byteClass uint8

const (
	classOther byteClass = iota
	classLetter
	classSpace
	classDigit
	classPunct
	classWhitespace
)

var byteClasses = func() [256]byteClass {
	var classes [256]byteClass
	for _, b := range []byte(Whitespace) {
		classes[b] = classWhitespace
	}
	for _, b := range []byte(Punctuation) {
		classes[b] = classPunct
	}
	for _, b := range []byte(Digits) {
		classes[b] = classDigit
	}
	for _, b := range []byte(Letters) {
		classes[b] = classLetter
	}
	classes[' '] = classSpace
	return classes
}()

// EnglishScore estimates how close text is to readable English. Higher is
// better. Each byte adds a class weight (letters 1, space 0.8, digits 0.5,
// punctuation 0.2, other whitespace 0) and each non-printable byte costs 10.
// When letters are present a bonus of at most 1 is added from the Pearson
// chi-squared statistic of the case-folded letter histogram.
func EnglishScore(text []byte) float64 {
	var (
		score   float64
		counts  [26]int
		letters int
	)
	for _, b := range text {
		switch byteClasses[b] {
		case classLetter:
			score++
			counts[(b|0x20)-'a']++
			letters++
		case classSpace:
			score += 0.8
		case classDigit:
			score += 0.5
		case classPunct:
			score += 0.2
		case classOther:
			score -= 10
		}
	}
	if letters == 0 {
		return score
	}

	n := float64(letters)
	var chi2 float64
	for i, expected := range englishDistribution {
		observed := float64(counts[i]) / n
		diff := observed - expected
		chi2 += diff * diff / expected
	}
	chi2 *= n

	if chi2 <= 1 {
		return score + 1
	}
	return score + 1/chi2
}
