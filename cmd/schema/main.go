package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"pixelarena/server"
)

// 默认写入仓库内的协议文档位置，客户端实现方据此校验消息格式
const defaultOut = "docs/protocol.schema.json"

func main() {
	outPath := flag.String("out", defaultOut, "path to write the JSON schema")
	flag.Parse()

	reflector := jsonschema.Reflector{AllowAdditionalProperties: true}
	schema := reflector.Reflect(new(server.Protocol))
	schema.Title = "pixelarena wire protocol"
	schema.Description = "JSON messages exchanged over /ws between server and clients"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal schema: %v\n", err)
		os.Exit(1)
	}

	if err := writeAtomic(*outPath, append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "write schema: %v\n", err)
		os.Exit(1)
	}
}

// writeAtomic 先写临时文件再改名，避免留下半截文档
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
