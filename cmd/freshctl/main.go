// freshctl FreshLoop 的命令列工具
package main

func main() {
	Execute()
}
