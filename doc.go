// Package gentask defines the building blocks of LLM tasks: messages and content,
// the Model and KnowledgeBase collaborators, Memory, tools, prompt sources, output
// schemas and run hooks.
//
// The task package runs a turn; the other packages provide implementations:
//
//   - models: langchaingo-backed Model (OpenAI, GitHub Models, any llms.Model)
//   - memory: in-process and SQLite Memory
//   - knowledge: bleve full-text and langchaingo vector store KnowledgeBase
//   - hooks: hook registry and a YAML event logger
//   - config: YAML and TOML task definitions
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "os"
//
//	    "github.com/rickchristie/gentask"
//	    "github.com/rickchristie/gentask/models"
//	    "github.com/rickchristie/gentask/task"
//	)
//
//	type Trip struct {
//	    City   string   `json:"city" description:"Destination city"`
//	    Days   int      `json:"days"`
//	    Sights []string `json:"sights"`
//	}
//
//	func main() {
//	    cfg := task.DefaultConfig()
//	    cfg.ModelFactory = models.GitHubFactory(models.GitHubGPT41Mini, os.Getenv("GITHUB_TOKEN"))
//	    cfg.Description = "You are a travel agent."
//	    cfg.OutputSchema = gentask.MustTypedSchemaFor[Trip]()
//
//	    t := task.New(cfg)
//	    res, err := t.Run(context.Background(), gentask.Text("A long weekend in Lisbon"))
//	    if err != nil {
//	        panic(err)
//	    }
//	    trip := res.Output.(Trip)
//	    fmt.Println(trip.City, trip.Sights)
//	}
//
// When the response does not match the schema the run still succeeds: Output holds
// the raw text and DecodeErr says why decoding failed.
//
// # Streaming
//
// RunStream yields text fragments as the model produces them. The turn is written to
// memory only once the sequence is exhausted:
//
//	for frag, err := range t.RunStream(ctx, gentask.Text("Tell me a story")) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(frag)
//	}
package gentask
