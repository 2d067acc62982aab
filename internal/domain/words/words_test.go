package words_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/okian/keysprint/internal/domain/words"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerator(t *testing.T) {
	Convey("Given a generator with a small vocabulary", t, func() {
		vocabulary := []string{"alpha", "beta", "gamma"}
		gen := words.NewGenerator(
			words.WithVocabulary(vocabulary),
			words.WithRand(rand.New(rand.NewSource(7))),
		)

		Convey("When generating 25 words", func() {
			passage, err := gen.Generate(25)
			So(err, ShouldBeNil)

			Convey("Then it has exactly 25 space-separated tokens from the vocabulary", func() {
				tokens := strings.Split(passage, " ")
				So(tokens, ShouldHaveLength, 25)
				for _, tok := range tokens {
					So(vocabulary, ShouldContain, tok)
				}
			})
		})

		Convey("When generating a single word", func() {
			passage, err := gen.Generate(1)
			So(err, ShouldBeNil)
			So(strings.Contains(passage, " "), ShouldBeFalse)
			So(vocabulary, ShouldContain, passage)
		})

		Convey("When the word count is not positive", func() {
			_, err := gen.Generate(0)
			So(err, ShouldEqual, words.ErrInvalidWordCount)

			_, err = gen.Generate(-3)
			So(err, ShouldEqual, words.ErrInvalidWordCount)
		})

		Convey("When two rounds are generated", func() {
			first, err := gen.Generate(30)
			So(err, ShouldBeNil)
			second, err := gen.Generate(30)
			So(err, ShouldBeNil)

			Convey("Then each round is an independent sample", func() {
				// With 3^30 possibilities a deterministic seed still
				// produces distinct consecutive passages.
				So(first, ShouldNotEqual, second)
			})
		})
	})

	Convey("Given a generator with an all-blank vocabulary", t, func() {
		gen := words.NewGenerator(words.WithVocabulary([]string{"", "  "}))

		Convey("Then it falls back to the default vocabulary", func() {
			passage, err := gen.Generate(5)
			So(err, ShouldBeNil)
			So(strings.Split(passage, " "), ShouldHaveLength, 5)
		})
	})

	Convey("Given the default vocabulary", t, func() {
		vocab := words.DefaultVocabulary()
		So(len(vocab), ShouldBeGreaterThan, 100)

		Convey("Then mutating the returned slice does not leak", func() {
			vocab[0] = "mutated"
			So(words.DefaultVocabulary()[0], ShouldNotEqual, "mutated")
		})
	})
}
