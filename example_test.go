package protocodec_test

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/convert"
	"github.com/anirudhraja/protocodec/reverse"
	"github.com/anirudhraja/protocodec/wire"
)

func ExampleCodec_Encode() {
	codec := protocodec.New(protocodec.Config{})
	if err := codec.Register(reverse.File()); err != nil {
		log.Fatal(err)
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(`{"user_string": "hello"}`), &obj); err != nil {
		log.Fatal(err)
	}
	data, err := codec.Encode(reverse.RequestType, obj)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("% X\n", data)
	// Output: 0A 05 68 65 6C 6C 6F
}

func ExampleCodec_Decode() {
	codec := protocodec.New(protocodec.Config{})
	if err := codec.Register(reverse.File()); err != nil {
		log.Fatal(err)
	}

	resp, err := reverse.Handle([]byte{0x0A, 0x05, 'h', 'e', 'l', 'l', 'o'})
	if err != nil {
		log.Fatal(err)
	}
	obj, err := codec.Decode(reverse.ResponseType, resp, convert.ToObjectOptions{JSONNames: true})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(obj)
	// Output: map[reversedString:olleh]
}

func ExampleCodec_Unmarshal() {
	codec := protocodec.New(protocodec.Config{
		Wire: wire.Config{Decode: wire.DecodeOptions{PopulateDefaults: true}},
	})
	if err := codec.Register(reverse.File()); err != nil {
		log.Fatal(err)
	}

	// an empty buffer is a message with every field at its default
	msg, err := codec.Unmarshal(reverse.RequestType, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%q\n", msg["user_string"])
	// Output: ""
}

func ExampleCodec_Verify() {
	codec := protocodec.New(protocodec.Config{})
	if err := codec.Register(reverse.File()); err != nil {
		log.Fatal(err)
	}

	fmt.Println(codec.Verify(reverse.RequestType, map[string]interface{}{"user_string": "ok"}))
	fmt.Println(codec.Verify(reverse.RequestType, map[string]interface{}{"user_string": []interface{}{1}}))
	// Output:
	// <nil>
	// user_string: string expected: cannot use []interface {} as string
}
