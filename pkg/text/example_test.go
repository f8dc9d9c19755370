package text_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/walteh/fosol/pkg/text"
)

func ExampleTemplate_Render() {
	tmpl, err := text.Parse("Dear {name}, your order {{#{order}}} ships {when=soon}.")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	out, err := tmpl.Render(text.Map{"name": "Ada", "order": 42})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println(out)
	fmt.Println(tmpl.Keys())

	// Output:
	// Dear Ada, your order {#42} ships soon.
	// [name order when]
}

func ExampleRenderer_Render() {
	renderer := text.NewRenderer(nil, false)

	result, err := renderer.Render(context.Background(), strings.NewReader("Hello {who}!"), text.StringMap{"who": "World"})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Original: %s\n", result.OriginalContent)
	fmt.Printf("Rendered: %s\n", result.RenderedContent)
	fmt.Printf("Substitutions: %d\n", result.SubstitutionCount)
	fmt.Printf("Was Modified: %v\n", result.WasModified)

	// Output:
	// Original: Hello {who}!
	// Rendered: Hello World!
	// Substitutions: 1
	// Was Modified: true
}

func ExampleParser_Parse() {
	_, err := text.Parse("unclosed {token")
	fmt.Println(err)

	// Output:
	// offset 9: unterminated token
}
