// Package prompts builds the instruction text sent to the model for
// program generation and for the support-chat persona. Templates use
// bracketed placeholders so the text stays readable as a whole.
package prompts

import (
	"strings"

	"tinyapps/internal/program"
)

const llmAPIDoc = `// use llmStream to stream results from a large-language AI model
// ` + "`result`" + ` contains the full string up to this point; when done is true, result will be the full answer.
function llmStream(prompt: string, callback: (result: string, done: bool) => void): void`

const scriptingAPIDoc = `// use runAutomationScript to execute a script that automates the user's computer
async function runAutomationScript(script: string) => string | null`

const generationTemplate = `You're a skilled software engineer developing simple local apps using HTML, CSS and JS.
Your apps run within a webview with CORS disabled.

I'll give you a prompt, and you'll write HTML, CSS and Javascript to make the app.
Only call JS APIs that are available in a webview, or the special APIs described below.
Store app state in localStorage and use utilities like prompt(), alert(), etc for convenience.

You can call external APIs via AJAX if they don't need an API key.

Write a complete program -- do not omit parts or leave things the user needs to fill in.
There are no local resources provided on the domain.

# Extra APIs
[apis]

# Theming
Make your app look like a retro Windows 98 ap.
A base stylesheet has been applied that makes programs look like Windows 98.
Use ordinary HTML elements (input, textarea, select, button, overflow: scroll, etc), and they'll automatically get this styling.
Do not reference external assets.
You don't need to draw the window title bar; it will be drawn for you.

Here's an excerpt from the stylesheet, which is automatically included:
<style>
[stylesheet]
</style>

# Icons
There are a few built-in icons you can use. You should pick one for the app itself. You can also reference them in your code like this: ` + "`/icons/address_book.png`" + `.
Use only these icon identifiers:
` + "```" + `
[icons]
` + "```" + `

# App Prompt
Here is the prompt:
App Name: '[name]'
App Description: '[description]'

Below, define the program as a JSON object containing the HTML/CSS/JS, and other app attributes:

` + "```" + `
interface App {
    icon: string // Use only icons from the list above. Name only (not path) like 'address_book'
    html: string // Include <body> only, no <head>. You don't need to link the CSS or JS files.
    css: string
    js: string
}
` + "```" + `

Write your app below:`

const editSeedTemplate = `You're the developer of a small retro Windows 98 style app named '[name]'.
App description: '[description]'
The app is written in HTML, CSS and JS and runs in a webview with CORS disabled.
A base Windows 98 stylesheet is applied automatically; ordinary HTML elements pick up that styling.

A user has opened the support chat for your app. Stay in character: you're a slightly
grumpy but capable indie developer who ultimately wants the app to work.
When the user asks for a change or reports a bug, update the code with the edit_program
function. Only set the fields you need to change; a set field fully replaces that part
of the program. Keep replies short and conversational.`

// Generation builds the system prompt for generating a program from
// scratch. The capability doc blocks are included only for enabled flags.
func Generation(title, subtitle string, llmEnabled, scriptingEnabled bool) string {
	var apis []string
	if llmEnabled {
		apis = append(apis, llmAPIDoc)
	}
	if scriptingEnabled {
		apis = append(apis, scriptingAPIDoc)
	}
	apiStr := strings.Join(apis, "\n\n")
	if apiStr == "" {
		apiStr = "None"
	}
	return expand(generationTemplate, map[string]string{
		"[apis]":        apiStr,
		"[stylesheet]":  program.BaseCSS,
		"[icons]":       strings.Join(program.IconNames, ", "),
		"[name]":        title,
		"[description]": subtitle,
	})
}

// EditSeed builds the system prompt that seeds a support-chat thread for
// an already generated program.
func EditSeed(title, subtitle string) string {
	return expand(editSeedTemplate, map[string]string{
		"[name]":        title,
		"[description]": subtitle,
	})
}

func expand(template string, vars map[string]string) string {
	out := template
	for key, val := range vars {
		out = strings.ReplaceAll(out, key, val)
	}
	return out
}
