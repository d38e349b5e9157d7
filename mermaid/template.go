// ABOUTME: Self-contained layout document embedding diagram text and the pinned mermaid.js bootstrap.
// ABOUTME: The in-page script sets exactly one of window.mermaidReady / window.mermaidError.
package mermaid

import (
	"fmt"
	"html/template"
	"strings"
)

// DefaultLibraryURL pins the layout library version. Rendering behavior must
// not drift underneath cached results, so the version is never "latest".
const DefaultLibraryURL = "https://cdn.jsdelivr.net/npm/mermaid@10.6.1/dist/mermaid.min.js"

// DefaultTheme and DefaultSecurityLevel are the fixed rendering options.
// securityLevel "loose" is required for htmlLabels in flowcharts.
const (
	DefaultTheme         = "default"
	DefaultSecurityLevel = "loose"
)

// documentData feeds the layout document template. Code is untrusted user
// input; html/template escapes it contextually both as visible HTML content
// and as a JS string literal.
type documentData struct {
	Code          string
	LibraryURL    string
	Theme         string
	SecurityLevel string
}

var documentTmpl = template.Must(template.New("diagram").Parse(documentHTML))

// renderDocument builds the HTML document loaded into a fresh surface.
func renderDocument(data documentData) (string, error) {
	var sb strings.Builder
	if err := documentTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("execute layout document template: %w", err)
	}
	return sb.String(), nil
}

const documentHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>
	body {
		margin: 0;
		padding: 20px;
		font-family: Arial, sans-serif;
		background: white;
		min-height: 100vh;
	}
	#mermaid-container {
		display: flex;
		justify-content: center;
		align-items: center;
		min-height: 400px;
	}
	.mermaid {
		background: white;
	}
	#status {
		position: fixed;
		top: 10px;
		right: 10px;
		padding: 5px 10px;
		background: #f0f0f0;
		border-radius: 3px;
		font-size: 12px;
	}
</style>
</head>
<body>
<div id="status">Loading...</div>
<div id="mermaid-container">
	<div class="mermaid" id="diagram">{{.Code}}</div>
</div>

<script src="{{.LibraryURL}}"></script>
<script>
	document.getElementById('status').textContent = 'Initializing...';

	// The library script tag above loads from the network; poll for its
	// global entry point instead of trusting the load event.
	function waitForMermaid() {
		return new Promise((resolve, reject) => {
			let attempts = 0;
			const maxAttempts = 50;

			function check() {
				attempts++;
				if (typeof mermaid !== 'undefined') {
					resolve();
				} else if (attempts >= maxAttempts) {
					reject(new Error('Mermaid failed to load'));
				} else {
					setTimeout(check, 100);
				}
			}
			check();
		});
	}

	async function initAndRender() {
		try {
			await waitForMermaid();

			mermaid.initialize({
				startOnLoad: false,
				theme: {{.Theme}},
				securityLevel: {{.SecurityLevel}},
				flowchart: {
					useMaxWidth: false,
					htmlLabels: true
				},
				sequence: {
					useMaxWidth: false
				},
				class: {
					useMaxWidth: false
				}
			});

			document.getElementById('status').textContent = 'Rendering...';

			const element = document.getElementById('diagram');
			const diagramCode = {{.Code}};

			const {svg} = await mermaid.render('generatedDiagram', diagramCode);

			element.innerHTML = svg;
			document.getElementById('status').textContent = 'Ready';

			window.mermaidReady = true;
		} catch (error) {
			document.getElementById('status').textContent = 'Error';
			window.mermaidError = error.message;
		}
	}

	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', initAndRender);
	} else {
		initAndRender();
	}
</script>
</body>
</html>
`
